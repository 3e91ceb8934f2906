package workflow

// DefaultDefinitions is the built-in discharge pipeline.
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name:    Nursing,
			Aliases: []string{"nurse", "nurse_station"},
			Table:   "DT_P1_NURSE_STATION",
			Next:    DischargeSummary,
			Steps: []Step{
				{Key: "PHARMACY_CLEARANCE"},
				{Key: "LAB_CLEARANCE"},
				{Key: "CONSUMABLE_CLEARANCE"},
				{Key: "PATIENT_CHECKOUT", Source: SourceBed, BedColumn: "STATUS", DoneValues: []int{3}},
				// Done once the summary ticket exists, whatever its state.
				{Key: "FILE_TRANSFERRED", Source: SourceTicket, DoneValues: []int{0, 1, 2}, MarkValue: 1, Terminal: true},
			},
		},
		{
			Name:    DischargeSummary,
			Aliases: []string{"summary", "ds"},
			Table:   "DT_P2_DISCHARGE_SUMMARY",
			Next:    DoctorAuthorization,
			Steps: []Step{
				{Key: "SUMMARY_INITIATION"},
				{Key: "SUMMARY_PREPARED"},
				{Key: "SUMMARY_FILE_DISPATCHED", Terminal: true},
			},
		},
		{
			Name:    DoctorAuthorization,
			Aliases: []string{"authorization", "summary_authorization"},
			Table:   "DT_P2_1_DOCTOR_AUTHORIZATION",
			Next:    Pharmacy,
			Steps: []Step{
				{Key: "AUTHORIZATION_REQUESTED"},
				{Key: "DOCTOR_AUTHORIZED"},
				{Key: "AUTHORIZATION_FILE_DISPATCHED", Terminal: true},
			},
		},
		{
			Name:  Pharmacy,
			Table: "DT_P3_PHARMACY",
			Next:  Billing,
			Steps: []Step{
				{Key: "PHARMACY_FILE_INITIATION"},
				{Key: "PHARMACY_COMPLETED"},
				{Key: "FILE_DISPATCHED", Terminal: true},
			},
		},
		{
			Name:  Billing,
			Table: "DT_P4_BILLING",
			Next:  Insurance,
			Steps: []Step{
				{Key: "BILLING_FILE_INITIATION"},
				{Key: "BILLING_COMPLETED"},
				{Key: "BILLING_FILE_DISPATCHED", Terminal: true},
			},
		},
		{
			Name:  Insurance,
			Table: "DT_P5_INSURANCE",
			Steps: []Step{
				{Key: "INSURANCE_FILE_INITIATION"},
				{Key: "INSURANCE_APPROVED"},
				{Key: "INSURANCE_FILE_DISPATCHED", Terminal: true},
			},
		},
	}
}
