package extractor

import "regexp"

// matterClassifier maps a keyword pattern to a matter-type label.
type matterClassifier struct {
	Label   string
	Pattern *regexp.Regexp
}

// Matter classifiers run in this order. Every match is kept.
var matterClassifiers = []matterClassifier{
	{"Family Law", regexp.MustCompile(`(?i)\b(divorce|custody|child support|alimony|spousal support|separation|adoption|visitation|prenup|prenuptial|paternity)\b`)},
	{"Employment Law", regexp.MustCompile(`(?i)\b(fired|wrongful(ly)? terminat\w*|overtime|boss|employer|workplace|unpaid wages?|wage theft|harass\w* at work|discriminat\w* at work|laid off)\b`)},
	{"Landlord/Tenant", regexp.MustCompile(`(?i)\b(landlord|tenant|evict\w*|lease|rent|security deposit)\b`)},
	{"Personal Injury", regexp.MustCompile(`(?i)\b(accident|injured|injury|injuries|slip and fall|car crash|malpractice|hit by)\b`)},
	{"Criminal Law", regexp.MustCompile(`(?i)\b(arrested|criminal|charged with|dui|dwi|misdemeanor|felony|probation)\b`)},
	{"Business Law", regexp.MustCompile(`(?i)\b(my business|small business|contract dispute|breach of contract|partnership|llc|incorporat\w*)\b`)},
	{"Estate Planning", regexp.MustCompile(`(?i)\b(my will|a will|last will|living trust|estate|probate|inheritance|power of attorney)\b`)},
	{"Immigration Law", regexp.MustCompile(`(?i)\b(visa|green card|immigration|deport\w*|citizenship|asylum|naturalization)\b`)},
	{"Bankruptcy", regexp.MustCompile(`(?i)\b(bankrupt\w*|creditors?|debt collectors?|foreclosure|chapter 7|chapter 13)\b`)},
	{"Intellectual Property", regexp.MustCompile(`(?i)\b(patent|trademark|copyright)\b`)},
}

// MatterLabels returns the classifier labels in order.
func MatterLabels() []string {
	out := make([]string, len(matterClassifiers))
	for i, c := range matterClassifiers {
		out[i] = c.Label
	}
	return out
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?1[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}\b`)

	// Only the lead phrase is case-insensitive; names must be capitalised.
	namePattern = regexp.MustCompile(`\b(?i:my name is|i'm|i am|this is|call me)\s+([A-Z][a-zA-Z'\-]+(?:\s+[A-Z][a-zA-Z'\-]+){0,2})`)

	locationPattern = regexp.MustCompile(`\b(?i:i live in|i'm based in|i am based in|based in|located in|i reside in|i'm from|i am from)\s+([A-Z][a-zA-Z.'\-]*(?:,?\s+[A-Z][a-zA-Z.'\-]*){0,3})`)

	lawyerContactPattern = regexp.MustCompile(`(?i)\b((speak|talk|meet|consult)\s+(to|with)\s+(a|an|the|your)?\s*(real\s+)?(lawyer|attorney|human|person|someone)|contact\s+(a|an|the)?\s*(lawyer|attorney)|hire\s+(a|an)?\s*(lawyer|attorney)|lawyer review|call me back)\b`)

	generalInfoPattern = regexp.MustCompile(`(?i)\b(what is|what's the difference|how does|how do .* work|can you explain|tell me about|general question|just curious|information about|in general)\b`)

	problemPattern = regexp.MustCompile(`(?i)\b(i need help|help me|need a lawyer|legal problem|legal issue|my situation|dispute|sued|suing|sue|trouble|happened to me|was wronged)\b`)

	affirmationPattern = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|yup|correct|that's right|that is right|exactly|sure|absolutely|please do|go ahead|ok|okay|sounds good)\b`)

	creationPattern = regexp.MustCompile(`(?i)\b(create|open|start|file|submit)\s+(a\s+|my\s+|the\s+)?(new\s+)?(matter|case)\b`)
)

// nameStopWords are capitalised words that follow "I am" without being a name.
var nameStopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "but": {}, "or": {}, "i": {},
	"not": {}, "looking": {}, "having": {}, "trying": {}, "going": {}, "getting": {},
	"being": {}, "here": {}, "in": {}, "from": {}, "at": {}, "so": {}, "very": {},
	"sorry": {}, "calling": {}, "writing": {}, "interested": {}, "married": {},
	"divorced": {}, "fine": {}, "good": {}, "okay": {}, "ok": {}, "just": {},
	"also": {}, "currently": {}, "really": {}, "still": {}, "hoping": {}, "wondering": {},
	"worried": {}, "scared": {}, "concerned": {}, "unsure": {}, "pregnant": {}, "unemployed": {},
}

// IsAffirmation reports whether msg opens with a yes-like answer.
func IsAffirmation(msg string) bool {
	return affirmationPattern.MatchString(msg)
}

// IsCreationRequest reports whether msg explicitly asks to open a matter.
func IsCreationRequest(msg string) bool {
	return creationPattern.MatchString(msg)
}
