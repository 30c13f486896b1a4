package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostyjaws/shopify-amazon-auto-uploader/internal/catalog"
)

const testImageURL = "https://cdn.example.com/funny-dog.png"

func buildFunnyDog(t *testing.T) Document {
	t.Helper()

	doc, err := Build(Input{
		Title:    "Funny Dog",
		ImageURL: testImageURL,
		Catalog:  catalog.Default(),
	})
	require.NoError(t, err)
	return doc
}

func TestBuild_FunnyDogScenario(t *testing.T) {
	doc := buildFunnyDog(t)

	require.Equal(t, 28, doc.Len())
	assert.Equal(t, KindListings, doc.Kind)

	parents := doc.Parents()
	require.Len(t, parents, 1)
	parent := parents[0]
	assert.Equal(t, "FunnyDog-Parent", parent.SKU)
	assert.Equal(t, doc.Records[0], parent)

	tiers := []string{"21.99", "22.99", "27.99"}
	labels := catalog.Default().Variations

	for i, r := range doc.Records[1:] {
		assert.Equal(t, RelationshipChild, r.Relationship)
		assert.Equal(t, parent.SKU, r.ParentSKU)
		assert.Equal(t, tiers[i%3], r.Attributes.First(AttrPrice), "label %s", labels[i])
		assert.Equal(t, "USD", r.Attributes[AttrPrice][0].Currency)
		assert.Equal(t, "999", r.Attributes.First(AttrQuantity))
		assert.NotEmpty(t, r.Attributes.First(AttrSize))
	}
}

func TestBuild_MessageIDsContiguousFromOne(t *testing.T) {
	doc := buildFunnyDog(t)

	for i, r := range doc.Records {
		assert.Equal(t, i+1, r.MessageID)
	}
}

func TestBuild_ImagesOnParentAndChildren(t *testing.T) {
	doc := buildFunnyDog(t)

	for _, r := range doc.Records {
		assert.Equal(t, testImageURL, r.Attributes.First(AttrMainImage))
		assert.Len(t, r.Attributes.Strings(AttrOtherImage), 5)
		assert.Len(t, r.Attributes.Strings(AttrBulletPoint), 5)
	}
}

func TestBuild_ParentImagesOnly(t *testing.T) {
	doc, err := Build(Input{
		Title:            "Funny Dog",
		ImageURL:         testImageURL,
		Catalog:          catalog.Default(),
		ParentImagesOnly: true,
	})
	require.NoError(t, err)

	assert.Equal(t, testImageURL, doc.Records[0].Attributes.First(AttrMainImage))
	for _, r := range doc.Records[1:] {
		assert.Empty(t, r.Attributes.First(AttrMainImage))
	}
}

func TestBuild_RequiresTitleAndImage(t *testing.T) {
	_, err := Build(Input{ImageURL: testImageURL, Catalog: catalog.Default()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Build(Input{Title: "Funny Dog", Catalog: catalog.Default()})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuild_AlternateCatalog(t *testing.T) {
	c := catalog.Default()
	c.Variations = []string{"Newborn White Short Sleeve", "12M Pink Long Sleeve"}

	doc, err := Build(Input{Title: "Cat", ImageURL: testImageURL, Catalog: c})
	require.NoError(t, err)
	require.Equal(t, 3, doc.Len())
	assert.Equal(t, "Cat-12M-Pink-LS", doc.Records[2].SKU)
	assert.Equal(t, "Long Sleeve", doc.Records[2].Attributes.First(AttrSleeve))
}

func TestInventoryFrom_ChildrenOnly(t *testing.T) {
	c := catalog.Default()
	doc := buildFunnyDog(t)

	inv, err := InventoryFrom(doc, c)
	require.NoError(t, err)

	require.Equal(t, 27, inv.Len())
	assert.Equal(t, KindInventory, inv.Kind)
	assert.Equal(t, doc.ChildSKUs(), inv.ChildSKUs())
	for i, r := range inv.Records {
		assert.Equal(t, i+1, r.MessageID)
		assert.Equal(t, "999", r.Attributes.First(AttrQuantity))
		assert.Equal(t, "2", r.Attributes.First(AttrFulfillmentLatency))
	}
	require.NoError(t, Validate(inv))
}

func TestDerived_RequireListings(t *testing.T) {
	inv, err := InventoryFrom(buildFunnyDog(t), catalog.Default())
	require.NoError(t, err)

	_, err = InventoryFrom(inv, catalog.Default())
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = ImagesFrom(inv)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestImagesFrom_MainThenSecondaries(t *testing.T) {
	doc := buildFunnyDog(t)

	img, err := ImagesFrom(doc)
	require.NoError(t, err)

	// 28 SKUs x (1 main + 5 secondary)
	require.Equal(t, 28*6, img.Len())
	assert.Equal(t, "Main", img.Records[0].Attributes.First(AttrImageType))
	assert.Equal(t, "PT1", img.Records[1].Attributes.First(AttrImageType))
	assert.Equal(t, "PT5", img.Records[5].Attributes.First(AttrImageType))
	assert.Equal(t, "FunnyDog-Parent", img.Records[5].SKU)
	require.NoError(t, Validate(img))
}
