package search

import (
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	"github.com/blevesearch/bleve/v2/mapping"
)

// TextFields are searched when a query names no field.
var TextFields = []string{"transcription", "moderated_text"}

// BuildIndexMapping maps voice documents. Transcripts are mostly Korean, so the
// default analyzer is the CJK bigram analyzer.
func BuildIndexMapping(defaultAnalyzer string) *mapping.IndexMappingImpl {
	if defaultAnalyzer == "" {
		defaultAnalyzer = cjk.AnalyzerName
	}
	idx := mapping.NewIndexMapping()
	idx.DefaultAnalyzer = defaultAnalyzer
	idx.TypeField = "type"

	text := mapping.NewTextFieldMapping()
	text.Store = true
	text.Index = true
	text.Analyzer = defaultAnalyzer
	text.IncludeInAll = true
	text.IncludeTermVectors = true

	kw := mapping.NewTextFieldMapping()
	kw.Store = true
	kw.Index = true
	kw.Analyzer = keyword.Name

	flag := mapping.NewBooleanFieldMapping()
	flag.Store = true
	flag.Index = true

	dt := mapping.NewDateTimeFieldMapping()
	dt.Store = true
	dt.Index = true

	voice := mapping.NewDocumentMapping()
	voice.Dynamic = false
	voice.AddFieldMappingsAt("transcription", text)
	voice.AddFieldMappingsAt("moderated_text", text)
	voice.AddFieldMappingsAt("status", kw)
	voice.AddFieldMappingsAt("is_approved", flag)
	voice.AddFieldMappingsAt("created_at", dt)
	idx.AddDocumentMapping(DocType, voice)

	def := mapping.NewDocumentMapping()
	def.Dynamic = false
	idx.DefaultMapping = def
	return idx
}
