package ingest

// Pipeline turns raw review text into vectorizer terms:
// text → normalization → tokenization → n-grams
type Pipeline struct {
	tokenizer  *Tokenizer
	minN, maxN int
}

// NewPipeline creates a pipeline emitting n-grams of length minN..maxN.
func NewPipeline(tokenizer *Tokenizer, minN, maxN int) *Pipeline {
	if minN < 1 {
		minN = 1
	}
	if maxN < minN {
		maxN = minN
	}
	return &Pipeline{tokenizer: tokenizer, minN: minN, maxN: maxN}
}

// ProcessedDoc represents a review after text processing
type ProcessedDoc struct {
	Normalized string
	Tokens     []string
	Terms      []string
}

// Empty reports whether normalization left nothing behind.
func (d ProcessedDoc) Empty() bool { return d.Normalized == "" }

// Process runs a review body through the pipeline
func (p *Pipeline) Process(text string) ProcessedDoc {
	normalized := Normalize(text)
	tokens := p.tokenizer.Tokenize(normalized)
	return ProcessedDoc{
		Normalized: normalized,
		Tokens:     tokens,
		Terms:      NGrams(tokens, p.minN, p.maxN),
	}
}
