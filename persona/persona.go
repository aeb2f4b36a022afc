// Package persona routes a career question to the specialist best suited to
// answer it.
package persona

import "strings"

type Persona string

const (
	CareerAnalyst        Persona = "Career Analyst"
	ResumeExpert         Persona = "Resume Expert"
	InterviewCoach       Persona = "Interview Coach"
	SkillAdvisor         Persona = "Skill Advisor"
	NetworkingSpecialist Persona = "Networking Specialist"
)

// Default answers questions no other persona claims.
const Default = CareerAnalyst

// Classifier picks a persona for a question. Implementations must be
// deterministic.
type Classifier interface {
	Classify(text string) Persona
}

// Rule is the keyword set that votes for a persona.
type Rule struct {
	Persona  Persona
	Keywords []string
}

// DefaultRules is the built-in routing table.
var DefaultRules = []Rule{
	{ResumeExpert, []string{"resume", "cv", "application", "ats", "optimize", "format", "cover letter"}},
	{InterviewCoach, []string{"interview", "preparation", "questions", "behavioral", "practice", "mock"}},
	{SkillAdvisor, []string{"skills", "learning", "course", "certification", "training", "development"}},
	{CareerAnalyst, []string{"salary", "market", "trends", "industry", "compensation", "career path"}},
	{NetworkingSpecialist, []string{"networking", "connections", "linkedin", "events", "professional network"}},
}

// KeywordRouter scores each persona by the number of its distinct keywords
// found in the lowercased question. The single highest score wins; no
// matches or a tie for the top score routes to Default.
type KeywordRouter struct {
	rules []Rule
}

func NewKeywordRouter(rules []Rule) *KeywordRouter {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		seen := make(map[string]bool, len(r.Keywords))
		keywords := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			keywords = append(keywords, kw)
		}
		normalized = append(normalized, Rule{Persona: r.Persona, Keywords: keywords})
	}
	return &KeywordRouter{rules: normalized}
}

func (r *KeywordRouter) Classify(text string) Persona {
	scores := r.Scores(text)

	best, bestScore, tied := Default, 0, false
	for _, rule := range r.rules {
		score := scores[rule.Persona]
		switch {
		case score > bestScore:
			best, bestScore, tied = rule.Persona, score, false
		case score == bestScore && score > 0 && rule.Persona != best:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return Default
	}
	return best
}

// Scores returns the keyword hit count per persona.
func (r *KeywordRouter) Scores(text string) map[Persona]int {
	lower := strings.ToLower(text)
	scores := make(map[Persona]int, len(r.rules))
	for _, rule := range r.rules {
		count := 0
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		scores[rule.Persona] += count
	}
	return scores
}

var _ Classifier = (*KeywordRouter)(nil)
