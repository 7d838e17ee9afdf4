package resolution

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/TechNxt05/CyberGuard/internal/llm"
	"github.com/TechNxt05/CyberGuard/internal/models"
)

// guideRule - одно правило диспетчеризации микро-гайдов.
// Правила проверяются по порядку, первое совпадение выигрывает.
type guideRule struct {
	keywords []string // все должны встретиться в тексте шага
	guide    string
}

// Частые шаги получают проверенный канонический гайд без похода в LLM
var guideRules = []guideRule{
	{
		keywords: []string{"cybercrime.gov"},
		guide: "1. Open https://cybercrime.gov.in/ and click 'File a Complaint'.\n" +
			"2. Accept the terms and register with your mobile number.\n" +
			"3. Choose the complaint category that matches your incident.\n" +
			"4. Fill in the incident details and attach screenshots or receipts.\n" +
			"5. Note the acknowledgement number to track the complaint later.",
	},
	{
		keywords: []string{"instagram", "hack"},
		guide: "1. Go to https://www.instagram.com/hacked/ from a browser.\n" +
			"2. Select 'My account was hacked' and follow the identity check.\n" +
			"3. Ask Instagram to send a login link to your email or phone.\n" +
			"4. Once inside, reset the password and enable two-factor auth.\n" +
			"5. Check Settings > Security > Login activity and log out unknown devices.",
	},
	{
		keywords: []string{"1930"},
		guide: "1. Call 1930 right now - it is the national financial fraud helpline.\n" +
			"2. Keep your bank name, account number and transaction details ready.\n" +
			"3. Ask them to raise a freeze request on the fraudulent transaction.\n" +
			"4. Note the reference number they give you.\n" +
			"5. Follow up with a written complaint on cybercrime.gov.in.",
	},
	{
		keywords: []string{"bank", "dispute"},
		guide: "1. Call your bank's official customer care (number on the card or passbook).\n" +
			"2. Report the transaction as fraudulent and ask to block the card/account.\n" +
			"3. Request a written dispute form and the complaint reference number.\n" +
			"4. If unresolved in 30 days, escalate to the RBI Ombudsman at https://cms.rbi.org.in/.",
	},
}

func matchGuideRule(stepText string) (string, bool) {
	text := strings.ToLower(stepText)
	for _, rule := range guideRules {
		matched := true
		for _, kw := range rule.keywords {
			if !strings.Contains(text, kw) {
				matched = false
				break
			}
		}
		if matched {
			return rule.guide, true
		}
	}
	return "", false
}

// GuideStep разворачивает один шаг плана в микро-гайд. Сначала
// таблица канонических правил, затем LLM, затем canned-текст с
// именем шага - гайд есть всегда.
func GuideStep(ctx context.Context, chain *llm.Chain, step *models.ResolutionStep) string {
	if guide, ok := matchGuideRule(step.Action + " " + step.Description); ok {
		return guide
	}

	guide, err := llm.GenerateText(ctx, chain, llm.BuildGuidePrompt(step))
	if err != nil {
		log.Printf("⚠️ Micro-guide failed for step %q: %v", step.Action, err)
		return fmt.Sprintf("Next step: %s. %s", step.Action, step.Description)
	}
	return guide
}
