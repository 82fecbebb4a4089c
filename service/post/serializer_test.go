package post

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTagsNameList(t *testing.T) {
	names, err := NormalizeTags([]byte(`["go", "web", "databases"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web", "databases"}, names)
}

func TestNormalizeTagsObjectList(t *testing.T) {
	names, err := NormalizeTags([]byte(`[{"name": "go"}, {"name": "web"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web"}, names)
}

// Multipart forms deliver tags as a JSON string, sometimes double-encoded.
func TestNormalizeTagsStringWrapped(t *testing.T) {
	names, err := NormalizeTags([]byte(`"[\"go\", \"web\"]"`))
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "web"}, names)
}

func TestNormalizeTagsDeduplicates(t *testing.T) {
	names, err := NormalizeTags([]byte(`["Go", "go", " GO ", "web"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "web"}, names)
}

func TestNormalizeTagsSkipsBlanks(t *testing.T) {
	names, err := NormalizeTags([]byte(`["", "  ", "go", {"name": ""}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, names)
}

func TestNormalizeTagsEmptyInput(t *testing.T) {
	names, err := NormalizeTags(nil)
	require.NoError(t, err)
	assert.Nil(t, names)

	names, err = NormalizeTags([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, names)
}

func TestNormalizeTagsRejectsNonList(t *testing.T) {
	_, err := NormalizeTags([]byte(`{"name": "go"}`))
	assert.Error(t, err)

	_, err = NormalizeTags([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseListParamRepeated(t *testing.T) {
	query, _ := url.ParseQuery("tag=go&tag=web")
	assert.Equal(t, []string{"go", "web"}, parseListParam(query, "tag", "tags"))
}

func TestParseListParamCSVFallback(t *testing.T) {
	query, _ := url.ParseQuery("tags=go,%20web%20,")
	assert.Equal(t, []string{"go", "web"}, parseListParam(query, "tag", "tags"))
}

// Repeated params win over the CSV form when both are present.
func TestParseListParamRepeatedWins(t *testing.T) {
	query, _ := url.ParseQuery("tag=go&tags=web,db")
	assert.Equal(t, []string{"go"}, parseListParam(query, "tag", "tags"))
}

func TestParseListParamEmpty(t *testing.T) {
	query, _ := url.ParseQuery("search=hello")
	assert.Empty(t, parseListParam(query, "tag", "tags"))
}

func TestSplitFilterValues(t *testing.T) {
	ids, names := splitFilterValues([]string{"3", "Go", "12", "Web Dev"})
	assert.Equal(t, []uint{3, 12}, ids)
	assert.Equal(t, []string{"go", "web dev"}, names)
}

func TestDecodeScalar(t *testing.T) {
	assert.Equal(t, "7", decodeScalar([]byte(`7`)))
	assert.Equal(t, "general", decodeScalar([]byte(`"general"`)))
	assert.Equal(t, "general", decodeScalar([]byte(`" general "`)))
	assert.Equal(t, "", decodeScalar([]byte(`null`)))
	assert.Equal(t, "", decodeScalar(nil))
	assert.Equal(t, "", decodeScalar([]byte(`["x"]`)))
}

func TestIsDigits(t *testing.T) {
	assert.True(t, isDigits("123"))
	assert.False(t, isDigits(""))
	assert.False(t, isDigits("12a"))
	assert.False(t, isDigits("-1"))
}
