package ingestion

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

var seedDocuments = map[string]string{
	"career_transition_guide.txt": `Career Transition Guide

Switching careers can be challenging but rewarding. Here are key steps for a successful career transition:

1. Self Assessment
   - Identify your transferable skills
   - Understand your interests and passions
   - Clarify your values and priorities
   - Assess your financial situation

2. Research Your Target Field
   - Study industry trends and growth prospects
   - Understand required skills and qualifications
   - Research salary ranges and job availability
   - Identify key companies and roles

3. Skill Development
   - Bridge skill gaps through online courses
   - Obtain relevant certifications
   - Build a portfolio or projects
   - Practice new skills through volunteering

4. Networking Strategy
   - Connect with professionals in your target field
   - Attend industry events and meetups
   - Join professional associations
   - Leverage LinkedIn for networking

5. Resume and Application Materials
   - Highlight transferable skills
   - Create a compelling career change narrative
   - Tailor your resume for each application
   - Write targeted cover letters

Timeline Expectations:
A career transition typically takes 6-18 months depending on how different your target field is.
`,
	"interview_preparation.txt": `Interview Preparation Guide

Mastering job interviews requires preparation, practice, and confidence.

Common Interview Questions:

1. "Tell me about yourself"
   - Keep it professional and relevant
   - Follow the Present-Past-Future format
   - Highlight key achievements

2. "Why do you want this role?"
   - Show you've researched the company
   - Connect your skills to their needs
   - Demonstrate genuine interest

3. "What are your strengths?"
   - Choose strengths relevant to the job
   - Provide specific examples
   - Show impact on previous employers

4. "Describe a challenging situation"
   - Use the STAR method (Situation, Task, Action, Result)
   - Choose a relevant example
   - Focus on problem-solving

Interview Preparation Checklist:
- Research the company thoroughly
- Practice common questions out loud
- Prepare 5-10 questions to ask them
- Plan your outfit and route
- Arrive 10-15 minutes early
`,
	"resume_optimization.txt": `Resume Optimization Guide

Your resume is your first impression with potential employers.

Essential Resume Sections:

1. Contact Information
   - Full name and professional email
   - Phone number and LinkedIn profile
   - City, State (no full address needed)

2. Professional Summary (2-3 lines)
   - Highlight key qualifications
   - Include years of experience
   - Mention your specialization

3. Work Experience
   - Use reverse chronological order
   - Start with strong action verbs
   - Quantify achievements with numbers
   - Focus on accomplishments, not duties

4. Skills Section
   - Technical skills relevant to the job
   - Software proficiencies
   - Relevant certifications

Best Practices:
- Keep it to 1-2 pages maximum
- Use clean, professional formatting
- Include keywords from job descriptions
- Tailor for each application
- Proofread carefully
`,
	"salary_negotiation.txt": `Salary Negotiation Guide

Negotiating your salary effectively can significantly impact your career earnings.

Preparation Phase:

1. Research Market Rates
   - Use Glassdoor, PayScale, Salary.com
   - Consider location and experience
   - Network with industry professionals

2. Know Your Worth
   - List accomplishments and contributions
   - Quantify your impact with metrics
   - Consider unique skills and experience

Negotiation Strategies:

When to Negotiate:
- After receiving a job offer
- During performance reviews
- When taking on new responsibilities

How to Negotiate:
- Express enthusiasm first
- Present research and justification
- Be confident but respectful
- Consider total compensation package

What to Say:
"I'm excited about this opportunity. Based on my research and experience, I was hoping for a salary in the range of $X to $Y."

Remember: The worst they can say is no, but they're likely to respect you for advocating professionally.
`,
}

// Seed returns a copy of the built-in reference documents keyed by filename.
func Seed() map[string]string {
	out := make(map[string]string, len(seedDocuments))
	for name, content := range seedDocuments {
		out[name] = content
	}
	return out
}

func (l *Loader) writeSeed() error {
	names := make([]string, 0, len(seedDocuments))
	for name := range seedDocuments {
		names = append(names, name)
	}
	sort.Strings(names)

	written := 0
	for _, name := range names {
		path := filepath.Join(l.dir, name)
		if err := os.WriteFile(path, []byte(seedDocuments[name]), 0o644); err != nil {
			l.logger.Printf("failed to create sample document %s: %v", name, err)
			continue
		}
		written++
	}
	if written == 0 {
		return fmt.Errorf("write sample documents to %s: none written", l.dir)
	}
	l.logger.Printf("created %d sample documents in %s", written, l.dir)
	return nil
}
