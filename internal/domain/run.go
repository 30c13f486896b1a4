package domain

type ProcessingStatus string

const (
	StatusSubmitted  ProcessingStatus = "submitted"
	StatusInProgress ProcessingStatus = "in-progress"
	StatusDone       ProcessingStatus = "done"
	StatusError      ProcessingStatus = "error"
	StatusCancelled  ProcessingStatus = "cancelled"
)

func (s ProcessingStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Marketplace feed types the builder can emit.
type FeedType string

const (
	FeedTypeFlatFileListings FeedType = "POST_FLAT_FILE_LISTINGS_DATA"
	FeedTypeJSONListings     FeedType = "JSON_LISTINGS_FEED"
	FeedTypeInventory        FeedType = "POST_INVENTORY_AVAILABILITY_DATA"
	FeedTypeProductImage     FeedType = "POST_PRODUCT_IMAGE_DATA"
)
