package stoplist

import (
	"sort"
	"strings"
)

// Manager holds the stopword set used before vectorizing review text
type Manager struct {
	stops map[string]Reason
}

// Reason records where a stopword came from
type Reason struct {
	English bool // general English function word
	Filler  bool // app-review filler ("app", "update", "stars", ...)
	Custom  bool // added from configuration
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	m := &Manager{stops: make(map[string]Reason, len(initialStops))}
	for _, s := range initialStops {
		m.Add(s, Reason{Custom: true})
	}
	return m
}

// Default returns the English list merged with the review filler list.
func Default() *Manager {
	m := &Manager{stops: make(map[string]Reason, len(english)+len(reviewFiller))}
	for _, s := range english {
		m.Add(s, Reason{English: true})
	}
	for _, s := range reviewFiller {
		m.Add(s, Reason{Filler: true})
	}
	return m
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[strings.ToLower(token)]
	return ok
}

// Add adds a token to the stoplist with a reason. Reasons accumulate.
func (m *Manager) Add(token string, reason Reason) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	prev := m.stops[token]
	m.stops[token] = Reason{
		English: prev.English || reason.English,
		Filler:  prev.Filler || reason.Filler,
		Custom:  prev.Custom || reason.Custom,
	}
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// Reason returns why token is on the list.
func (m *Manager) Reason(token string) (Reason, bool) {
	r, ok := m.stops[strings.ToLower(token)]
	return r, ok
}

// All returns all stopwords, sorted
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }

// ReviewFiller returns a copy of the built-in app-review filler words.
func ReviewFiller() []string {
	return append([]string(nil), reviewFiller...)
}

// English returns a copy of the built-in English stopwords.
func English() []string {
	return append([]string(nil), english...)
}

// words that show up in nearly every app review and carry no theme
var reviewFiller = []string{
	"app", "application", "phone", "mobile", "android", "ios", "iphone",
	"device", "update", "version", "download", "install", "user", "use",
	"using", "used", "like", "really", "just", "good", "bad", "great",
	"love", "hate", "time", "way", "thing", "getting", "make", "work",
	"working", "works", "doesnt", "don", "won", "can", "would", "could",
	"should", "much", "many", "lot", "lots", "pretty", "very", "quite",
	"review", "rating", "star", "stars", "spotify", "listen", "listening",
	"play", "playing",
}

var english = []string{
	"a", "about", "above", "across", "after", "afterwards", "again", "against",
	"all", "almost", "alone", "along", "already", "also", "although", "always",
	"am", "among", "amongst", "amoungst", "amount", "an", "and", "another",
	"any", "anyhow", "anyone", "anything", "anyway", "anywhere", "are",
	"around", "as", "at", "back", "be", "became", "because", "become",
	"becomes", "becoming", "been", "before", "beforehand", "behind", "being",
	"below", "beside", "besides", "between", "beyond", "bill", "both",
	"bottom", "but", "by", "call", "can", "cannot", "cant", "co", "con",
	"could", "couldnt", "cry", "de", "describe", "detail", "do", "done",
	"down", "due", "during", "each", "eg", "eight", "either", "eleven", "else",
	"elsewhere", "empty", "enough", "etc", "even", "ever", "every", "everyone",
	"everything", "everywhere", "except", "few", "fifteen", "fifty", "fill",
	"find", "fire", "first", "five", "for", "former", "formerly", "forty",
	"found", "four", "from", "front", "full", "further", "get", "give", "go",
	"had", "has", "hasnt", "have", "he", "hence", "her", "here", "hereafter",
	"hereby", "herein", "hereupon", "hers", "herself", "him", "himself", "his",
	"how", "however", "hundred", "i", "ie", "if", "in", "inc", "indeed",
	"interest", "into", "is", "it", "its", "itself", "keep", "last", "latter",
	"latterly", "least", "less", "ltd", "made", "many", "may", "me",
	"meanwhile", "might", "mill", "mine", "more", "moreover", "most", "mostly",
	"move", "much", "must", "my", "myself", "name", "namely", "neither",
	"never", "nevertheless", "next", "nine", "no", "nobody", "none", "noone",
	"nor", "not", "nothing", "now", "nowhere", "of", "off", "often", "on",
	"once", "one", "only", "onto", "or", "other", "others", "otherwise", "our",
	"ours", "ourselves", "out", "over", "own", "part", "per", "perhaps",
	"please", "put", "rather", "re", "same", "see", "seem", "seemed",
	"seeming", "seems", "serious", "several", "she", "should", "show", "side",
	"since", "sincere", "six", "sixty", "so", "some", "somehow", "someone",
	"something", "sometime", "sometimes", "somewhere", "still", "such",
	"system", "take", "ten", "than", "that", "the", "their", "them",
	"themselves", "then", "thence", "there", "thereafter", "thereby",
	"therefore", "therein", "thereupon", "these", "they", "thick", "thin",
	"third", "this", "those", "though", "three", "through", "throughout",
	"thru", "thus", "to", "together", "too", "top", "toward", "towards",
	"twelve", "twenty", "two", "un", "under", "until", "up", "upon", "us",
	"very", "via", "was", "we", "well", "were", "what", "whatever", "when",
	"whence", "whenever", "where", "whereafter", "whereas", "whereby",
	"wherein", "whereupon", "wherever", "whether", "which", "while", "whither",
	"who", "whoever", "whole", "whom", "whose", "why", "will", "with",
	"within", "without", "would", "yet", "you", "your", "yours", "yourself",
	"yourselves",
}
