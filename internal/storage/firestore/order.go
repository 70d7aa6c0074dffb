// Package firestore stores order records in Cloud Firestore under
// users/{uid}/orders/{paymentIntentID}.
package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

const (
	usersCollection  = "users"
	ordersCollection = "orders"
)

// orderDoc is the stored document. Field names match what the storefront's
// orders page reads.
type orderDoc struct {
	Basket  []itemDoc `firestore:"basket"`
	Amount  int64     `firestore:"amount"`
	Created time.Time `firestore:"created"`
}

// itemDoc keeps the price as a decimal string so it round-trips exactly.
type itemDoc struct {
	ID     string `firestore:"id"`
	Title  string `firestore:"title"`
	Price  string `firestore:"price"`
	Rating int    `firestore:"rating"`
	Image  string `firestore:"image"`
}

// OrderRepository implements order.Repository on Firestore.
type OrderRepository struct {
	client *firestore.Client
}

// NewOrderRepository returns an OrderRepository using client.
func NewOrderRepository(client *firestore.Client) *OrderRepository {
	return &OrderRepository{client: client}
}

func (r *OrderRepository) orders(uid string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(uid).Collection(ordersCollection)
}

// Create writes the order document. The write fails with
// order.ErrAlreadyExists when the document is already present.
func (r *OrderRepository) Create(ctx context.Context, rec *order.Record) error {
	_, err := r.orders(rec.UID).Doc(rec.PaymentIntentID).Create(ctx, toDoc(rec))
	if status.Code(err) == codes.AlreadyExists {
		return order.ErrAlreadyExists
	}
	if err != nil {
		return errors.Wrapf(err, "create order document %q", rec.PaymentIntentID)
	}
	return nil
}

// ListByUser returns the shopper's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, uid string) ([]order.Record, error) {
	it := r.orders(uid).OrderBy("created", firestore.Desc).Documents(ctx)
	defer it.Stop()

	var out []order.Record
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "iterate orders")
		}
		var doc orderDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, errors.Wrapf(err, "decode order %q", snap.Ref.ID)
		}
		rec, err := fromDoc(uid, snap.Ref.ID, doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toDoc(rec *order.Record) orderDoc {
	items := make([]itemDoc, len(rec.Basket))
	for i, it := range rec.Basket {
		items[i] = itemDoc{
			ID:     it.ID,
			Title:  it.Title,
			Price:  it.Price.String(),
			Rating: it.Rating,
			Image:  it.Image,
		}
	}
	return orderDoc{Basket: items, Amount: rec.Amount, Created: rec.Created}
}

func fromDoc(uid, id string, doc orderDoc) (order.Record, error) {
	items := make([]basket.Item, len(doc.Basket))
	for i, it := range doc.Basket {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return order.Record{}, errors.Wrapf(err, "order %q item %q price", id, it.ID)
		}
		items[i] = basket.Item{
			ID:     it.ID,
			Title:  it.Title,
			Price:  price,
			Rating: it.Rating,
			Image:  it.Image,
		}
	}
	return order.Record{
		UID:             uid,
		PaymentIntentID: id,
		Basket:          items,
		Amount:          doc.Amount,
		Created:         doc.Created.UTC(),
	}, nil
}
