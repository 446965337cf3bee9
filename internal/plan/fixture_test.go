package plan

// samplePlanJSON is a complete, valid model response.
const samplePlanJSON = `{
  "summary": "Convert a 2019 Mazda MX-5 to a 96 kWh LFP EV.",
  "vehicle": {"make": "Mazda", "model": "MX-5", "year": 2019},
  "drivetrain": {"motor": "HyPer 9", "inverter": "SME AC-X144", "gearRatio": 3.9},
  "battery": {"chemistry": "LFP", "voltage": 400, "capacity_kWh": 96, "packLayout": "2 modules front, 4 rear"},
  "safety": {
    "standards": ["ISO 6469-3", "NFPA 70"],
    "risks": [
      {"code": "HV-ISO", "severity": "HIGH", "remediation": "Install an insulation monitor."},
      {"code": "THERM", "severity": "MEDIUM", "remediation": "Add coolant loop to the pack."}
    ]
  },
  "bom": [
    {"sku": "HP9-144", "qty": 1, "unitCost": 4200.5, "description": "Motor"},
    {"sku": "LFP-16", "qty": 6, "unitCost": 1500, "description": "Battery module"}
  ],
  "laborHours": 120,
  "cost": {"parts": 13200.5, "labor": 9600, "overhead": 500, "total": 23300.5}
}`

func ptr[T any](v T) *T { return &v }
