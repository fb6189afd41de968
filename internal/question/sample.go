package question

// SampleSet returns a small built-in question set so the engine can run
// locally before any generated batches have been loaded.
func SampleSet() []Question {
	return []Question{
		{
			ID: "bio-basic-001", Subject: "biology", Tier: TierBasic,
			Prompt: "Which organelle is known as the powerhouse of the cell?",
			Choices: []Choice{
				{Key: "A", Text: "Nucleus"},
				{Key: "B", Text: "Mitochondria"},
				{Key: "C", Text: "Ribosome"},
				{Key: "D", Text: "Golgi apparatus"},
			},
			Answer:      "B",
			Explanation: "Mitochondria produce most of the cell's ATP through cellular respiration.",
			Hints: []string{
				"It is where cellular respiration happens.",
				"Its name starts with the letter M.",
			},
		},
		{
			ID: "bio-basic-002", Subject: "biology", Tier: TierBasic,
			Prompt:      "What process do plants use to convert sunlight into chemical energy?",
			Answer:      "photosynthesis",
			Explanation: "Photosynthesis converts light energy, water, and CO2 into glucose and oxygen.",
			Hints: []string{
				"It happens in the chloroplasts.",
			},
		},
		{
			ID: "bio-basic-003", Subject: "biology", Tier: TierBasic,
			Prompt: "How many chromosomes does a typical human body cell contain?",
			Answer: "46",
			Explanation: "Human somatic cells carry 23 pairs of chromosomes, 46 in total.",
		},
		{
			ID: "math-basic-001", Subject: "math", Tier: TierBasic,
			Prompt:      "What is 12 x 8?",
			Answer:      "96",
			Explanation: "12 x 8 = (10 x 8) + (2 x 8) = 80 + 16 = 96.",
			Hints: []string{
				"Split 12 into 10 and 2, multiply each by 8.",
			},
		},
		{
			ID: "math-intermediate-001", Subject: "math", Tier: TierIntermediate,
			Prompt: "Solve for x: 3x + 5 = 20",
			Choices: []Choice{
				{Key: "A", Text: "3"},
				{Key: "B", Text: "5"},
				{Key: "C", Text: "7"},
			},
			Answer:      "B",
			Explanation: "Subtract 5 from both sides (3x = 15), then divide by 3.",
		},
	}
}
