// Package render turns plans and chat turns into Markdown and renders that
// Markdown for the terminal.
package render

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"evai/internal/chat"
	"evai/internal/grounding"
	"evai/internal/plan"
)

// NotAvailable stands in for any field the plan does not carry.
const NotAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// Markdown renders a plan as a Markdown document with one section per plan
// area. A nil plan renders as an empty string.
func Markdown(p *plan.ConversionPlan) string {
	if p == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("# EV Conversion Plan\n\n")
	b.WriteString(orNA(p.Summary))
	b.WriteString("\n\n")

	b.WriteString("## Vehicle\n\n")
	var v plan.Vehicle
	if p.Vehicle != nil {
		v = *p.Vehicle
	}
	if v.VIN != "" {
		detail(&b, "VIN", v.VIN)
	}
	detail(&b, "Make", orNA(v.Make))
	detail(&b, "Model", orNA(v.Model))
	detail(&b, "Year", intOrNA(v.Year))
	b.WriteString("\n")

	if len(p.Detections) > 0 {
		b.WriteString("## Detections\n\n")
		for _, d := range p.Detections {
			conf := NotAvailable
			if d.Confidence != nil {
				conf = strconv.FormatFloat(*d.Confidence*100, 'f', 0, 64) + "%"
			}
			fmt.Fprintf(&b, "- %s (%s)\n", orNA(d.Label), conf)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Drivetrain\n\n")
	var d plan.Drivetrain
	if p.Drivetrain != nil {
		d = *p.Drivetrain
	}
	detail(&b, "Motor", orNA(d.Motor))
	detail(&b, "Inverter", orNA(d.Inverter))
	detail(&b, "Gear Ratio", numOrNA(d.GearRatio, ""))
	b.WriteString("\n")

	b.WriteString("## Battery System\n\n")
	var bat plan.Battery
	if p.Battery != nil {
		bat = *p.Battery
	}
	detail(&b, "Chemistry", orNA(string(bat.Chemistry)))
	detail(&b, "Voltage", numOrNA(bat.Voltage, "V"))
	detail(&b, "Capacity", numOrNA(bat.CapacityKWh, "kWh"))
	detail(&b, "Pack Layout", orNA(bat.PackLayout))
	b.WriteString("\n")

	if len(p.Wiring) > 0 {
		b.WriteString("## Wiring\n\n")
		for _, w := range p.Wiring {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	writeBOM(&b, p.BOM)
	writeCost(&b, p)
	writeSafety(&b, p.Safety)

	if len(p.Citations) > 0 {
		b.WriteString("## Grounded Citations\n\n")
		writeCitations(&b, p.Citations)
		b.WriteString("\n")
	}

	if p.Export != nil && (p.Export.PDFURI != "" || p.Export.JSONURI != "") {
		b.WriteString("## Exports\n\n")
		if p.Export.PDFURI != "" {
			fmt.Fprintf(&b, "- PDF: %s\n", p.Export.PDFURI)
		}
		if p.Export.JSONURI != "" {
			fmt.Fprintf(&b, "- JSON: %s\n", p.Export.JSONURI)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeBOM(b *strings.Builder, items []plan.BOMItem) {
	b.WriteString("## Bill of Materials (BOM)\n\n")
	if len(items) == 0 {
		b.WriteString(NotAvailable + "\n\n")
		return
	}
	b.WriteString("| Item | Qty | Unit Cost | Total |\n")
	b.WriteString("| --- | ---: | ---: | ---: |\n")
	for _, item := range items {
		name := item.Description
		if name == "" {
			name = item.SKU
		}
		total := NotAvailable
		if t, ok := item.LineTotal(); ok {
			total = dollars(t)
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s |\n",
			cell(orNA(name)), numOrNA(item.Qty, ""), moneyOrNA(item.UnitCost), total)
	}
	b.WriteString("\n")
}

func writeCost(b *strings.Builder, p *plan.ConversionPlan) {
	b.WriteString("## Cost & Labor\n\n")
	var c plan.Cost
	if p.Cost != nil {
		c = *p.Cost
	}
	fmt.Fprintf(b, "**Total Estimated Cost:** %s\n\n", moneyOrNA(c.Total))
	detail(b, "Parts Cost", moneyOrNA(c.Parts))
	detail(b, "Labor Cost", moneyOrNA(c.Labor))
	if c.Overhead != nil {
		detail(b, "Overhead", moneyOrNA(c.Overhead))
	}
	detail(b, "Labor Hours", numOrNA(p.LaborHours, "hrs"))
	b.WriteString("\n")
}

func writeSafety(b *strings.Builder, s *plan.Safety) {
	b.WriteString("## Safety & Compliance\n\n")
	var safety plan.Safety
	if s != nil {
		safety = *s
	}

	b.WriteString("### Applicable Standards\n\n")
	if len(safety.Standards) == 0 {
		b.WriteString(NotAvailable + "\n")
	}
	for _, std := range safety.Standards {
		fmt.Fprintf(b, "- %s\n", std)
	}
	b.WriteString("\n")

	b.WriteString("### Identified Risks\n\n")
	if len(safety.Risks) == 0 {
		b.WriteString(NotAvailable + "\n")
	}
	for _, r := range safety.Risks {
		fmt.Fprintf(b, "- **%s** [%s]: %s\n", orNA(r.Code), orNA(string(r.Severity)), orNA(r.Remediation))
	}
	b.WriteString("\n")
}

func writeCitations(b *strings.Builder, citations []grounding.Citation) {
	for _, c := range citations {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		fmt.Fprintf(b, "- [%s](%s)\n", title, c.URI)
	}
}

// ChatMessage renders one chat turn, with its citations as a source list.
func ChatMessage(m chat.Message) string {
	var b strings.Builder
	speaker := "You"
	if m.Role == chat.RoleModel {
		speaker = "EV.AI"
	}
	fmt.Fprintf(&b, "**%s:** %s\n", speaker, m.Text())
	if len(m.Citations) > 0 {
		b.WriteString("\nSources:\n\n")
		writeCitations(&b, m.Citations)
	}
	return b.String()
}

func detail(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- **%s:** %s\n", label, value)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func intOrNA(n *int) string {
	if n == nil {
		return NotAvailable
	}
	return strconv.Itoa(*n)
}

func numOrNA(n *float64, unit string) string {
	if n == nil {
		return NotAvailable
	}
	s := strconv.FormatFloat(*n, 'f', -1, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func moneyOrNA(n *float64) string {
	if n == nil {
		return NotAvailable
	}
	return dollars(*n)
}

// dollars formats an amount with two decimals and thousands separators.
func dollars(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// cell escapes pipes so a value cannot split a table row.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
