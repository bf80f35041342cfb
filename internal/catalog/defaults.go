package catalog

// defaultStages is the embedded consulting intake dialogue. Field keys here
// are the canonical brief keys; the handoff enumerates exactly these.
var defaultStages = []Stage{
	{
		Stage:         1,
		Name:          "Business Idea",
		Description:   "The core concept: what is being built and which problem it solves.",
		DataToCollect: []string{"business_concept", "problem_statement", "inspiration"},
		Intro:         "Let's start by understanding the core of your business idea. I'm excited to learn about what you're building!",
		FollowUps: []string{
			"That's interesting! Can you elaborate on how this solves the problem?",
			"What specific pain point does this address?",
			"How did you identify this opportunity?",
		},
		Validation: "Great! I have a clear understanding of your business concept.",
		Keywords:   []string{"solve", "problem", "solution", "help", "improve", "automate"},
	},
	{
		Stage:         2,
		Name:          "Target Market",
		Description:   "Who benefits most from the solution and how they are reached.",
		DataToCollect: []string{"target_segments", "customer_profile", "market_size"},
		Intro:         "Now let's dive into who will benefit most from your solution.",
		FollowUps: []string{
			"How large do you estimate this market to be?",
			"What characteristics define your ideal customer?",
			"Where do these customers typically look for solutions?",
		},
		Validation: "Perfect! Your target market is well-defined.",
		Keywords:   []string{"customers", "users", "businesses", "consumers", "market", "segment"},
	},
	{
		Stage:         3,
		Name:          "Value Proposition",
		Description:   "What makes the solution uniquely valuable to its customers.",
		DataToCollect: []string{"unique_value", "key_differentiators", "customer_benefits"},
		Intro:         "Let's articulate what makes your solution truly unique and valuable.",
		FollowUps: []string{
			"How is this different from what's currently available?",
			"What's the main benefit customers will experience?",
			"Why would customers choose you over alternatives?",
		},
		Validation: "Excellent! Your value proposition is compelling.",
		Keywords:   []string{"unique", "better", "faster", "cheaper", "easier", "different"},
	},
	{
		Stage:         4,
		Name:          "Competitive Landscape",
		Description:   "Existing alternatives and how the venture positions against them.",
		DataToCollect: []string{"competitors", "positioning", "barriers_to_entry"},
		Intro:         "Let's map out who else is solving this problem today.",
		FollowUps: []string{
			"Who do your customers turn to right now?",
			"What keeps competitors from copying your approach?",
			"Where are the incumbents weakest?",
		},
		Validation: "Good! The competitive picture is clear.",
		Keywords:   []string{"competitor", "alternative", "incumbent", "differentiate", "moat", "advantage"},
	},
	{
		Stage:         5,
		Name:          "Business Model",
		Description:   "How the venture creates, delivers, and captures value.",
		DataToCollect: []string{"revenue_streams", "pricing_model", "cost_structure"},
		Intro:         "Now let's explore how you'll create and capture value.",
		FollowUps: []string{
			"What are your main revenue streams?",
			"How does your pricing compare to alternatives?",
			"What are the key costs in delivering this value?",
		},
		Validation: "Wonderful! Your business model is taking shape.",
		Keywords:   []string{"subscription", "saas", "marketplace", "freemium", "license", "revenue"},
	},
	{
		Stage:         6,
		Name:          "Validation Plan",
		Description:   "How the riskiest assumptions will be tested.",
		DataToCollect: []string{"validation_approach", "success_metrics", "riskiest_assumption"},
		Intro:         "Let's plan how you'll test and validate your assumptions.",
		FollowUps: []string{
			"What experiments could validate your riskiest assumption?",
			"How will you measure early success?",
			"What would make you pivot or persevere?",
		},
		Validation: "Fantastic! You have a solid validation strategy.",
		Keywords:   []string{"test", "mvp", "prototype", "feedback", "iterate", "measure"},
	},
	{
		Stage:         7,
		Name:          "Goals & Next Steps",
		Description:   "Near-term milestones and what the engagement should deliver.",
		DataToCollect: []string{"ninety_day_goals", "key_risks", "support_needed"},
		Intro:         "Finally, let's set concrete goals so the analysis can focus on what matters.",
		FollowUps: []string{
			"What does success look like in ninety days?",
			"Which risk worries you most right now?",
			"Where do you most want outside help?",
		},
		Validation: "Excellent! I have everything needed to prepare your brief.",
		Keywords:   []string{"goal", "milestone", "launch", "hire", "funding", "risk"},
	},
}
