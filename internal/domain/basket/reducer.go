package basket

import "github.com/go-faster/errors"

// ActionType names a basket mutation.
type ActionType string

const (
	ActionAddToBasket      ActionType = "ADD_TO_BASKET"
	ActionRemoveFromBasket ActionType = "REMOVE_FROM_BASKET"
	ActionEmptyBasket      ActionType = "EMPTY_BASKET"
)

// ErrUnknownAction is returned by Reduce for an unsupported action type.
var ErrUnknownAction = errors.New("unknown basket action")

// Action is a mutation request for the basket store.
type Action struct {
	Type ActionType `json:"type"`
	// Item is set for ADD_TO_BASKET.
	Item Item `json:"item"`
	// ID is set for REMOVE_FROM_BASKET.
	ID string `json:"id,omitempty"`
}

// EmptyBasket returns the EMPTY_BASKET action.
func EmptyBasket() Action {
	return Action{Type: ActionEmptyBasket}
}

// AddToBasket returns the ADD_TO_BASKET action for item.
func AddToBasket(item Item) Action {
	return Action{Type: ActionAddToBasket, Item: item}
}

// RemoveFromBasket returns the REMOVE_FROM_BASKET action for the item id.
func RemoveFromBasket(id string) Action {
	return Action{Type: ActionRemoveFromBasket, ID: id}
}

// Reduce applies action to b and returns the resulting basket. The input is
// never modified. The version is bumped only when the items change.
func Reduce(b Basket, action Action) (Basket, error) {
	switch action.Type {
	case ActionAddToBasket:
		items := append(b.Snapshot(), action.Item)
		return Basket{Items: items, Version: b.Version + 1}, nil

	case ActionRemoveFromBasket:
		idx := -1
		for i, item := range b.Items {
			if item.ID == action.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return b, nil
		}
		items := make([]Item, 0, len(b.Items)-1)
		items = append(items, b.Items[:idx]...)
		items = append(items, b.Items[idx+1:]...)
		return Basket{Items: items, Version: b.Version + 1}, nil

	case ActionEmptyBasket:
		if b.IsEmpty() {
			return b, nil
		}
		return Basket{Items: []Item{}, Version: b.Version + 1}, nil

	default:
		return b, errors.Wrapf(ErrUnknownAction, "%q", action.Type)
	}
}
