package advice

import "strings"

type fallbackCategory struct {
	keywords []string
	text     string
}

// Categories are checked in order; the first with a matching keyword wins.
var fallbackCategories = []fallbackCategory{
	{
		keywords: []string{"resume", "cv", "application"},
		text: `I understand you're asking about resume/CV optimization. Here are some quick tips:

• Use action verbs and quantify achievements (e.g., "Increased sales by 25%")
• Tailor your resume to each job application
• Include relevant keywords from the job posting
• Keep formatting clean and ATS-friendly
• Focus on accomplishments, not just job duties

For more detailed guidance, please try asking a more specific question about resume writing.`,
	},
	{
		keywords: []string{"interview", "preparation"},
		text: `I see you're asking about interview preparation. Here are key strategies:

• Research the company and role thoroughly
• Practice the STAR method for behavioral questions
• Prepare 5-7 thoughtful questions to ask them
• Practice your "tell me about yourself" pitch
• Plan your outfit and logistics in advance

Feel free to ask me about specific interview scenarios or question types!`,
	},
	{
		keywords: []string{"salary", "negotiation"},
		text: `For salary negotiation, consider these fundamentals:

• Research market rates using Glassdoor, PayScale, etc.
• Know your value and be ready to articulate it
• Wait for the offer before negotiating
• Consider the total compensation package
• Be professional and respectful in your approach

Remember: negotiation shows you value yourself professionally!`,
	},
}

const genericFallback = `I'm here to help with your career questions! I can assist with:

• Resume and CV optimization
• Interview preparation and practice
• Salary negotiation strategies
• Skill development planning
• Professional networking
• Career transition guidance

Please feel free to ask me a more specific question about any of these areas!`

// FallbackFor returns the canned answer matching the question's topic.
func FallbackFor(question string) string {
	lower := strings.ToLower(question)
	for _, cat := range fallbackCategories {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.text
			}
		}
	}
	return genericFallback
}
