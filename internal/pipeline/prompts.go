package pipeline

import (
	"fmt"

	"github.com/sells-group/opportunity-research/internal/model"
)

const verifyPrompt = `You are verifying a person's identity and current employer.

Person: %[1]s
Claimed title: %[2]s
Claimed company: %[3]s

Search ONLY %[4]s. Do not use any other website.
If several profiles match, choose the best match on name, company and title together.
If you cannot confirm that this person holds this role at this company, set "verified" to false.
Never guess. An unconfirmed match is worse than no match.

Return ONLY a JSON object with exactly these keys and no surrounding prose or markdown:
{
  "verified": true or false,
  "linkedinUrl": "profile URL" or null,
  "confirmedName": "name as shown on the profile" or null,
  "confirmedTitle": "current title as shown on the profile" or null,
  "confirmedCompany": "current employer as shown on the profile" or null,
  "evidence": ["URL of every page you relied on"],
  "notes": "one or two sentences on how the match was made or why it failed"
}`

const researchPrompt = `You are researching a professional to identify tailored automation opportunities for their role.

Person: %[1]s
Claimed title: %[2]s
Claimed company: %[3]s

Identity verification result from %[4]s:
%[5]s

%[6]s

Rules:
- If you cannot tie this person to %[3]s, say so explicitly in "research.person". Do not describe a different person with the same name.
- Every source you rely on for "research.person" or "research.role" must mention both %[1]s and %[3]s.
- Base the opportunities on the role and the company's actual operations, products and industry.
- Give between 3 and 6 opportunities, each concrete and specific to this person's day-to-day work.

Return ONLY a JSON object with exactly this shape and no surrounding prose or markdown:
{
  "research": {
    "person": "what you found about the person and how it was confirmed",
    "role": "what the role involves at this company",
    "company": "what the company does, its size, industry and recent developments"
  },
  "opportunities": [
    {"title": "short opportunity name", "description": "what to automate, how, and the expected impact"}
  ]
}`

const verifiedGuidance = `The identity above was verified. Use the confirmed name, title and company as ground truth.`

const unverifiedGuidance = `The identity above was NOT verified. Before researching, independently confirm that %s works at %s as %s using other reputable sources such as the company website, press releases or news coverage. If you cannot confirm it, continue with the company and role research but state clearly that the person could not be confirmed.`

func buildVerifyPrompt(s model.Subject, domain string) string {
	return fmt.Sprintf(verifyPrompt, s.Name, s.Title, s.Company, domain)
}

func buildResearchPrompt(s model.Subject, rec model.VerificationRecord, domain string) string {
	guidance := verifiedGuidance
	if !rec.Verified {
		guidance = fmt.Sprintf(unverifiedGuidance, s.Name, s.Company, s.Title)
	}
	return fmt.Sprintf(researchPrompt, s.Name, s.Title, s.Company, domain, rec.JSON(), guidance)
}
