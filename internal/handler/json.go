package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/basket"
	"github.com/xenking/storefront-checkout/internal/domain/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/order"
)

const maxBodySize = 64 << 10

var errMalformed = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func readBody(w http.ResponseWriter, r *http.Request) (*jx.Decoder, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(errMalformed, err.Error())
	}
	if len(body) == 0 {
		return nil, errors.Wrap(errMalformed, "empty body")
	}
	return jx.DecodeBytes(body), nil
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeItem(e *jx.Encoder, it basket.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(it.ID)
	e.FieldStart("title")
	e.Str(it.Title)
	e.FieldStart("price")
	encodeDecimal(e, it.Price)
	e.FieldStart("rating")
	e.Int(it.Rating)
	e.FieldStart("image")
	e.Str(it.Image)
	e.ObjEnd()
}

func encodeItems(e *jx.Encoder, items []basket.Item) {
	e.ArrStart()
	for _, it := range items {
		encodeItem(e, it)
	}
	e.ArrEnd()
}

func encodeForm(e *jx.Encoder, f checkout.Form) {
	e.ObjStart()
	e.FieldStart("state")
	e.Str(f.State.String())
	e.FieldStart("error")
	e.Str(f.Error)
	e.FieldStart("disabled")
	e.Bool(f.Disabled)
	e.FieldStart("cardComplete")
	e.Bool(f.CardComplete)
	e.FieldStart("processing")
	e.Bool(f.Processing())
	e.FieldStart("succeeded")
	e.Bool(f.Succeeded())
	if f.ClientSecret != "" {
		e.FieldStart("clientSecret")
		e.Str(f.ClientSecret)
	}
	e.ObjEnd()
}

func encodeView(e *jx.Encoder, v *checkout.View) {
	e.ObjStart()
	e.FieldStart("itemCount")
	e.Int(v.ItemCount)
	e.FieldStart("email")
	e.Str(v.Email)
	e.FieldStart("items")
	encodeItems(e, v.Items)
	e.FieldStart("total")
	encodeDecimal(e, v.Total)
	e.FieldStart("totalText")
	e.Str(v.TotalText)
	e.FieldStart("form")
	encodeForm(e, v.Form)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, rec order.Record) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(rec.PaymentIntentID)
	e.FieldStart("amount")
	e.Int64(rec.Amount)
	e.FieldStart("created")
	e.Str(rec.Created.UTC().Format(time.RFC3339))
	e.FieldStart("basket")
	encodeItems(e, rec.Basket)
	e.ObjEnd()
}

func decodeItem(d *jx.Decoder) (basket.Item, error) {
	var it basket.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Str()
		case "title":
			it.Title, err = d.Str()
		case "price":
			it.Price, err = decodeDecimal(d)
		case "rating":
			it.Rating, err = d.Int()
		case "image":
			it.Image, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return basket.Item{}, errors.Wrap(errMalformed, err.Error())
	}
	if it.ID == "" {
		return basket.Item{}, errors.Wrap(errMalformed, "item id is required")
	}
	if it.Price.IsNegative() {
		return basket.Item{}, errors.Wrap(errMalformed, "price must not be negative")
	}
	return it, nil
}

// decodeDecimal accepts 19.99 and "19.99".
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	} else {
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	}
	return decimal.NewFromString(raw)
}

func decodeCardEvent(d *jx.Decoder) (checkout.CardEvent, error) {
	var ev checkout.CardEvent
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "empty":
			ev.Empty, err = d.Bool()
		case "complete":
			ev.Complete, err = d.Bool()
		case "error":
			if d.Next() == jx.Null {
				return d.Null()
			}
			ev.Error, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return checkout.CardEvent{}, errors.Wrap(errMalformed, err.Error())
	}
	return ev, nil
}

func decodePaymentMethod(d *jx.Decoder) (string, error) {
	var method string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "paymentMethod" {
			return d.Skip()
		}
		v, err := d.Str()
		method = v
		return err
	})
	if err != nil {
		return "", errors.Wrap(errMalformed, err.Error())
	}
	return method, nil
}
