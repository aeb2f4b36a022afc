package persona

import "testing"

func TestClassifyExamples(t *testing.T) {
	router := NewKeywordRouter(nil)

	cases := []struct {
		query string
		want  Persona
	}{
		{"How do I optimize my resume and cover letter for ATS?", ResumeExpert},
		{"What's the weather today?", CareerAnalyst},
		{"Any tips for a behavioral interview?", InterviewCoach},
		{"Which certification course should I take?", SkillAdvisor},
		{"How do I grow my LinkedIn connections?", NetworkingSpecialist},
		{"What is the salary market like in my industry?", CareerAnalyst},
	}
	for _, tc := range cases {
		if got := router.Classify(tc.query); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.query, got, tc.want)
		}
	}
}

func TestClassifyTieRoutesToDefault(t *testing.T) {
	router := NewKeywordRouter(nil)

	// one resume keyword, one interview keyword
	query := "resume or interview?"
	scores := router.Scores(query)
	if scores[ResumeExpert] != 1 || scores[InterviewCoach] != 1 {
		t.Fatalf("unexpected scores: %v", scores)
	}
	if got := router.Classify(query); got != CareerAnalyst {
		t.Fatalf("expected tie to route to %s, got %s", CareerAnalyst, got)
	}
}

func TestClassifyCountsDistinctKeywords(t *testing.T) {
	router := NewKeywordRouter(nil)
	// "interview" repeated still counts once; two distinct resume keywords win.
	query := "interview interview interview resume cv"
	if got := router.Classify(query); got != ResumeExpert {
		t.Fatalf("expected %s, got %s", ResumeExpert, got)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	router := NewKeywordRouter(nil)
	queries := []string{
		"How do I optimize my resume and cover letter for ATS?",
		"networking events and interview practice",
		"",
		"SALARY NEGOTIATION",
	}
	for _, q := range queries {
		first := router.Classify(q)
		for i := 0; i < 50; i++ {
			if got := router.Classify(q); got != first {
				t.Fatalf("Classify(%q) changed from %s to %s", q, first, got)
			}
		}
	}
}

func TestCustomRulesAreNormalized(t *testing.T) {
	router := NewKeywordRouter([]Rule{
		{SkillAdvisor, []string{" Golang ", "golang", ""}},
		{ResumeExpert, []string{"resume"}},
	})
	scores := router.Scores("learning golang")
	if scores[SkillAdvisor] != 1 {
		t.Fatalf("expected duplicate keywords to collapse, got %v", scores)
	}
	if got := router.Classify("learning golang"); got != SkillAdvisor {
		t.Fatalf("expected %s, got %s", SkillAdvisor, got)
	}
}

func TestDescribe(t *testing.T) {
	all := All()
	if len(all) != 5 {
		t.Fatalf("expected 5 personas, got %d", len(all))
	}
	for _, d := range all {
		if !Valid(d.Name) {
			t.Fatalf("unknown persona %q", d.Name)
		}
		if d.Role == "" || d.Goal == "" || d.Backstory == "" || len(d.Expertise) == 0 {
			t.Fatalf("incomplete descriptor: %+v", d)
		}
	}

	if got := Describe(Persona("Astrologer")); got.Name != Default {
		t.Fatalf("expected unknown persona to describe %s, got %s", Default, got.Name)
	}

	d := Describe(ResumeExpert)
	d.Expertise[0] = "changed"
	if Describe(ResumeExpert).Expertise[0] == "changed" {
		t.Fatal("Describe must return a copy of the expertise list")
	}
}
