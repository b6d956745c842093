package bibtex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEntry = `@article{vaswani2017attention,
  title   = {Attention Is All You Need},
  author  = {Vaswani, Ashish and Shazeer, Noam},
  year    = {2017},
  eprint  = {1706.03762},
  keywords = {transformers, attention},
  abstract = {The dominant sequence transduction models...},
}`

func TestParse(t *testing.T) {
	entries, err := Parse(sampleEntry)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "article", entry.Type)
	assert.Equal(t, "vaswani2017attention", entry.Key)
	assert.Equal(t, "Attention Is All You Need", entry.Field("title"))
	assert.Equal(t, "Vaswani, Ashish and Shazeer, Noam", entry.Field("author"))
	assert.Equal(t, "2017", entry.Field("year"))
	assert.Equal(t, "1706.03762", entry.Field("eprint"))
	assert.Equal(t, "The dominant sequence transduction models...", entry.Field("abstract"))
}

func TestParseQuotedAndBareValues(t *testing.T) {
	entries, err := Parse(`@misc{key1, title = "Quoted Title", year = 2020 }`)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Quoted Title", entries[0].Field("title"))
	assert.Equal(t, "2020", entries[0].Field("year"))
}

func TestParseNestedBraces(t *testing.T) {
	entries, err := Parse(`@article{key2, title = {On {GPU} Scheduling} }`)
	require.NoError(t, err)
	assert.Equal(t, "On {GPU} Scheduling", entries[0].Field("title"))
}

func TestParseMultipleEntries(t *testing.T) {
	entries, err := Parse(`@misc{a, title={First}} @misc{b, title={Second}}`)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "First", entries[0].Field("title"))
	assert.Equal(t, "Second", entries[1].Field("title"))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("this is not bibtex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expecting an entry")
}

func TestParseRejectsUnbalancedBraces(t *testing.T) {
	_, err := Parse(`@article{key, title = {never closed`)
	require.Error(t, err)
}

func TestFieldIsCaseInsensitive(t *testing.T) {
	entries, err := Parse(`@misc{k, Title = {Mixed Case} }`)
	require.NoError(t, err)
	assert.Equal(t, "Mixed Case", entries[0].Field("TITLE"))
}

func TestSplitAuthors(t *testing.T) {
	names := SplitAuthors("Doe, John and Smith, Jane")
	assert.Equal(t, []string{"John Doe", "Jane Smith"}, names)
}

func TestSplitAuthorsWithoutComma(t *testing.T) {
	names := SplitAuthors("Grace Hopper and Knuth, Donald")
	assert.Equal(t, []string{"Grace Hopper", "Donald Knuth"}, names)
}

func TestSplitAuthorsEmpty(t *testing.T) {
	assert.Nil(t, SplitAuthors("   "))
}

func TestSplitKeywords(t *testing.T) {
	keywords := SplitKeywords("transformers, attention, , nlp ")
	assert.Equal(t, []string{"transformers", "attention", "nlp"}, keywords)
}
