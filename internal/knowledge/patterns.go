package knowledge

import (
	"sort"
	"strings"
)

// Seed-корпус известных скам-сообщений. Классификатор подмешивает
// ближайшие паттерны в промпт как контекст.
var seedPatterns = []string{
	"Dear customer your KYC is pending. Update immediately by clicking bit.ly/...",
	"Electricity bill unpaid. Power will be cut tonight. Call 98XXXXXXX",
	"Part time job offer. Earn 5000 daily. Just like youtube videos. WhatsApp now.",
	"Congratulations! You won a lottery of 25 Lakhs from KBC. Call Mr. Rana.",
	"Friend in hospital need urgent money UPI. Please help.",
	"This is Mumbai Police. Drugs found in your parcel. Connect to Skype immediately.",
	"Instant Loan approved 50,000. Low interest. Install App now.",
	"Scan this QR code to receive Rs 2000 in your account. Do not share PIN.",
	"Airtel 5G upgrade offer. Send SMS 'SIM 1234' to 121 to activate.",
	"Zomato Refund Customer Care. Call 99XXXXXXXX for refund.",
	"Crypto Trading Signals. 500% profit guaranteed in 24 hours. Join Telegram.",
	"Your computer has a virus. Call Microsoft Support Toll Free.",
	"Your files are encrypted. Pay 0.5 BTC to decrypt.",
	"Customs Duty pending for gift sent from UK. Pay immediately.",
	"You have been recorded watching adult content. Pay $500 or video will be sent to contacts.",
	"FedEx: Your package is held at customs. Click here to pay duties.",
	"Amazon Hiring: Work from home, Rs 8000/day. No interview. Join WhatsApp group.",
	"HDFC Bank: Your account is blocked due to suspicious activity. Click to verify identity.",
	"Income Tax Refund approved. Click to claim your Rs 15,000 refund.",
	"Olx: I want to buy your furniture. I am army officer. Sending QR code for advance payment.",
	"Facebook: Is this you in this video? [Link]",
	"Invest in Solar Energy. Double your money in 3 months. Government approved.",
	"Your Netflix subscription is expired. Update payment details immediately.",
	"Dad, I lost my phone. This is my new number. Send money for rent.",
	"Apple Support: suspicious login detected on your iCloud. Call support.",
	"Instagram: You have violated copyright. Verify account to avoid deletion.",
	"Deepfake video call from 'Boss' asking for urgent fund transfer.",
	"Free iPhone 15 Pro. Just pay shipping charges of Rs 199.",
	"Stock Market Tips: Insider news on penny stocks. 10x returns guaranteed.",
	"Work visa approved for Canada. Pay processing fee of 1 Lakh immediately.",
	"You missed a jury duty. Pay fine or arrest warrant will be issued.",
	"Dating App: I am stuck in customs. Can you pay the fee? I will return it.",
}

// PatternIndex - индекс похожести по известным скам-текстам.
// Ранжирование - токенный Jaccard: детерминированно и без внешних
// зависимостей, чего для подмешивания контекста в промпт достаточно.
type PatternIndex struct {
	patterns []string
	tokens   []map[string]bool
}

// NewPatternIndex строит индекс по встроенному корпусу
func NewPatternIndex() *PatternIndex {
	return NewPatternIndexWith(seedPatterns)
}

// NewPatternIndexWith строит индекс по произвольному корпусу
func NewPatternIndexWith(patterns []string) *PatternIndex {
	idx := &PatternIndex{
		patterns: patterns,
		tokens:   make([]map[string]bool, len(patterns)),
	}
	for i, p := range patterns {
		idx.tokens[i] = tokenize(p)
	}
	return idx
}

// Search возвращает topK ближайших паттернов к тексту
func (idx *PatternIndex) Search(text string, topK int) []string {
	if topK <= 0 || len(idx.patterns) == 0 {
		return nil
	}

	query := tokenize(text)

	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, len(idx.patterns))
	for i := range idx.patterns {
		scores[i] = scored{i: i, score: jaccard(query, idx.tokens[i])}
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if topK > len(scores) {
		topK = len(scores)
	}

	results := make([]string, 0, topK)
	for _, s := range scores[:topK] {
		results = append(results, idx.patterns[s.i])
	}
	return results
}

// ScamRules - статические правила детекции, добавляются в каждый
// классификационный промпт
func ScamRules() []string {
	return []string{
		"Banks never ask for OTP or Password via call/SMS.",
		"Electricity board does not cut power without official notice.",
		"High returns with zero risk is always a scam.",
		"Urgency ('Do it NOW') is a major red flag.",
		"Unknown numbers asking for money for 'friends' are likely fake.",
	}
}

func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,!?:;\"'()[]")
		if len(w) > 2 {
			tokens[w] = true
		}
	}
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
