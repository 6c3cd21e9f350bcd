package calendar

// builtinYears is the NYSE exception table shipped with the binary. Full
// closures and early-close sessions only; everything else Monday-Friday is a
// regular 390-bar day. Extend via a calendar data file when fetching history
// outside this range.
var builtinYears = []yearData{
	{
		Year: 2020,
		Holidays: []string{
			"2020-01-01", "2020-01-20", "2020-02-17", "2020-04-10",
			"2020-05-25", "2020-07-03", "2020-09-07", "2020-11-26",
			"2020-12-25",
		},
		EarlyCloses: map[string]string{
			"2020-11-27": "short",
			"2020-12-24": "short",
		},
	},
	{
		Year: 2021,
		Holidays: []string{
			"2021-01-01", "2021-01-18", "2021-02-15", "2021-04-02",
			"2021-05-31", "2021-07-05", "2021-09-06", "2021-11-25",
			"2021-12-24",
		},
		EarlyCloses: map[string]string{
			"2021-11-26": "short",
		},
	},
	{
		Year: 2022,
		Holidays: []string{
			"2022-01-17", "2022-02-21", "2022-04-15", "2022-05-30",
			"2022-06-20", "2022-07-04", "2022-09-05", "2022-11-24",
			"2022-12-26",
		},
		EarlyCloses: map[string]string{
			"2022-11-25": "short",
		},
	},
	{
		Year: 2023,
		Holidays: []string{
			"2023-01-02", "2023-01-16", "2023-02-20", "2023-04-07",
			"2023-05-29", "2023-06-19", "2023-07-04", "2023-09-04",
			"2023-11-23", "2023-12-25",
		},
		EarlyCloses: map[string]string{
			"2023-07-03": "short",
			"2023-11-24": "short",
		},
	},
	{
		Year: 2024,
		Holidays: []string{
			"2024-01-01", "2024-01-15", "2024-02-19", "2024-03-29",
			"2024-05-27", "2024-06-19", "2024-07-04", "2024-09-02",
			"2024-11-28", "2024-12-25",
		},
		EarlyCloses: map[string]string{
			"2024-07-03": "short",
			"2024-11-29": "short",
			"2024-12-24": "short",
		},
	},
	{
		Year: 2025,
		Holidays: []string{
			"2025-01-01", "2025-01-09", "2025-01-20", "2025-02-17",
			"2025-04-18", "2025-05-26", "2025-06-19", "2025-07-04",
			"2025-09-01", "2025-11-27", "2025-12-25",
		},
		EarlyCloses: map[string]string{
			"2025-07-03": "short",
			"2025-11-28": "short",
			"2025-12-24": "short",
		},
	},
	{
		Year: 2026,
		Holidays: []string{
			"2026-01-01", "2026-01-19", "2026-02-16", "2026-04-03",
			"2026-05-25", "2026-06-19", "2026-07-03", "2026-09-07",
			"2026-11-26", "2026-12-25",
		},
		EarlyCloses: map[string]string{
			"2026-11-27": "short",
			"2026-12-24": "short",
		},
	},
}
