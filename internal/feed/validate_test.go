package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(res ValidationResult) []string {
	out := make([]string, 0, len(res.Issues))
	for _, is := range res.Issues {
		out = append(out, is.Code)
	}
	return out
}

func TestCheck_ValidDocument(t *testing.T) {
	res := Check(buildFunnyDog(t))
	assert.True(t, res.IsValid(), res.Error())
}

func TestCheck_DetectsGapInMessageIDs(t *testing.T) {
	doc := buildFunnyDog(t)
	doc.Records[3].MessageID = 40

	res := Check(doc)
	require.False(t, res.IsValid())
	assert.Contains(t, codes(res), "not_contiguous")
	assert.ErrorIs(t, Validate(doc), ErrInvalidDocument)
}

func TestCheck_DetectsParentMismatch(t *testing.T) {
	doc := buildFunnyDog(t)
	doc.Records[5].ParentSKU = "Other-Parent"

	res := Check(doc)
	assert.Contains(t, codes(res), "mismatch")
}

func TestCheck_DetectsOrphanChild(t *testing.T) {
	doc := buildFunnyDog(t)
	doc.Records = doc.Records[1:]
	Renumber(&doc)

	res := Check(doc)
	assert.Contains(t, codes(res), "orphan_child")
}

func TestCheck_DetectsDuplicateSKU(t *testing.T) {
	doc := buildFunnyDog(t)
	doc.Records[2].SKU = doc.Records[1].SKU

	res := Check(doc)
	assert.Contains(t, codes(res), "duplicate")
}

func TestCheck_ChildNeedsVariationAttribute(t *testing.T) {
	doc := buildFunnyDog(t)
	require.NoError(t, doc.Records[1].Attributes.Set(AttrSize))

	res := Check(doc)
	assert.Contains(t, codes(res), "required")
}

func TestCheck_EmptyDocument(t *testing.T) {
	res := Check(Document{Kind: KindListings})
	assert.Equal(t, []string{"empty"}, codes(res))
}

func TestAttributes_Cardinality(t *testing.T) {
	a := Attributes{}

	assert.NoError(t, a.SetStrings(AttrBulletPoint, "1", "2", "3", "4", "5"))
	assert.ErrorIs(t, a.SetStrings(AttrBulletPoint, "1", "2", "3", "4", "5", "6"), ErrCardinality)
	assert.Len(t, a.Strings(AttrBulletPoint), 5)

	assert.ErrorIs(t, a.SetStrings(AttrItemName, "a", "b"), ErrCardinality)
	assert.ErrorIs(t, a.SetStrings(AttrPrice, "21.99"), ErrCardinality)
	assert.NoError(t, a.Set(AttrPrice, Value{Value: "21.99", Currency: "USD"}))
	assert.ErrorIs(t, a.Set(AttrQuantity, Value{Value: "1", Currency: "USD"}), ErrCardinality)

	assert.NoError(t, a.Set(AttrPrice))
	_, ok := a[AttrPrice]
	assert.False(t, ok)
}
