package domain

// MessageTypeSelection is the discriminator of outbound selection frames.
const MessageTypeSelection = "selection"

// Selected is one row picked by the user.
type Selected struct {
	BuyerCategory   string
	ProductCategory string
	RowKey          string
}

// Category is the wire form of a selected row.
type Category struct {
	BuyerCategory   string `json:"buyer_category"`
	ProductCategory string `json:"product_category"`
}

// OutboundSelection is sent to the backend when the user commits a selection.
type OutboundSelection struct {
	Type       string     `json:"type"`
	Categories []Category `json:"categories"`
}

// NewOutboundSelection projects selected rows onto the wire message.
// The categories slice is never nil so it encodes as [].
func NewOutboundSelection(selected []Selected) OutboundSelection {
	categories := make([]Category, 0, len(selected))
	for _, s := range selected {
		categories = append(categories, Category{
			BuyerCategory:   s.BuyerCategory,
			ProductCategory: s.ProductCategory,
		})
	}
	return OutboundSelection{Type: MessageTypeSelection, Categories: categories}
}
