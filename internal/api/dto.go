package api

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/KaltrinaI/WebStoreManagement/internal/domain/apperr"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/discount"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/order"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/product"
	"github.com/KaltrinaI/WebStoreManagement/internal/domain/report"
)

// Money is serialized as a JSON number with two-decimal rounding; the exact
// decimal stays in the domain and the database.
func encodeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.Float64(d.Round(2).InexactFloat64())
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(p.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, p.Price) })
		e.Field("discountedPrice", func(e *jx.Encoder) { encodeMoney(e, p.DiscountedPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(p.Quantity) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category.Name) })
		e.Field("brand", func(e *jx.Encoder) { e.Str(p.Brand.Name) })
		e.Field("gender", func(e *jx.Encoder) { e.Str(p.Gender.Name) })
		e.Field("color", func(e *jx.Encoder) { e.Str(p.Color.Name) })
		e.Field("size", func(e *jx.Encoder) { e.Str(p.Size.Name) })
		e.Field("discounts", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, d := range p.Discounts {
					encodeAppliedDiscount(e, d)
				}
			})
		})
	})
}

func encodeAppliedDiscount(e *jx.Encoder, d product.AppliedDiscount) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(d.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(d.Name) })
		e.Field("percentage", func(e *jx.Encoder) { encodeMoney(e, d.Percentage) })
		e.Field("startDate", func(e *jx.Encoder) { encodeTime(e, d.StartDate) })
		e.Field("endDate", func(e *jx.Encoder) { encodeTime(e, d.EndDate) })
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(o.ID) })
		e.Field("orderDate", func(e *jx.Encoder) { encodeTime(e, o.OrderDate) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("userEmail", func(e *jx.Encoder) { e.Str(o.UserEmail) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Items {
					encodeOrderItem(e, &o.Items[i])
				}
			})
		})
	})
}

func encodeOrderItem(e *jx.Encoder, it *order.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(it.ID) })
		e.Field("productId", func(e *jx.Encoder) { e.Int64(it.ProductID) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
		e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, it.UnitPrice) })
		if it.Product != nil {
			e.Field("product", func(e *jx.Encoder) { encodeProduct(e, it.Product) })
		}
	})
}

func encodeDiscount(e *jx.Encoder, d *discount.Discount) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(d.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(d.Name) })
		e.Field("percentage", func(e *jx.Encoder) { encodeMoney(e, d.Percentage) })
		e.Field("startDate", func(e *jx.Encoder) { encodeTime(e, d.StartDate) })
		e.Field("endDate", func(e *jx.Encoder) { encodeTime(e, d.EndDate) })
	})
}

func encodeReport(e *jx.Encoder, r *report.Report) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(r.ID) })
		e.Field("generatedAt", func(e *jx.Encoder) { encodeTime(e, r.GeneratedAt) })
		e.Field("totalEarnings", func(e *jx.Encoder) { encodeMoney(e, r.TotalEarnings) })
		e.Field("month", func(e *jx.Encoder) { e.Int(r.Month) })
		e.Field("year", func(e *jx.Encoder) { e.Int(r.Year) })
		if r.TopProduct != nil {
			e.Field("topProduct", func(e *jx.Encoder) { encodeProduct(e, r.TopProduct) })
		}
	})
}

func encodePerformance(e *jx.Encoder, p *report.ProductPerformance) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("productId", func(e *jx.Encoder) { e.Int64(p.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("totalSales", func(e *jx.Encoder) { encodeMoney(e, p.TotalSales) })
		e.Field("unitsSold", func(e *jx.Encoder) { e.Int(p.UnitsSold) })
	})
}

func decodePlaceOrderRequest(body []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "email":
			v, err := d.Str()
			req.Email = v
			return err
		case "orderDate":
			v, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, v)
			req.OrderDate = t
			return err
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItemFields(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.PlaceOrderRequest{}, apperr.Wrap(apperr.InvalidArgument, err, "malformed order request")
	}
	if req.Email == "" {
		return order.PlaceOrderRequest{}, apperr.New(apperr.InvalidArgument, "email is required")
	}
	if len(req.Items) == 0 {
		return order.PlaceOrderRequest{}, apperr.New(apperr.InvalidArgument, "items required")
	}
	return req, nil
}

func decodeItemRequest(body []byte) (order.ItemRequest, error) {
	d := jx.DecodeBytes(body)
	item, err := decodeItemFields(d)
	if err != nil {
		return order.ItemRequest{}, apperr.Wrap(apperr.InvalidArgument, err, "malformed item request")
	}
	return item, nil
}

func decodeItemFields(d *jx.Decoder) (order.ItemRequest, error) {
	var item order.ItemRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			v, err := d.Int64()
			item.ProductID = v
			return err
		case "quantity":
			v, err := d.Int()
			item.Quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	return item, err
}

func decodeDiscountRequest(body []byte) (*discount.Discount, error) {
	var out discount.Discount
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			out.Name = v
			return err
		case "percentage":
			v, err := d.Float64()
			out.Percentage = decimal.NewFromFloat(v)
			return err
		case "startDate":
			t, err := decodeTime(d)
			out.StartDate = t
			return err
		case "endDate":
			t, err := decodeTime(d)
			out.EndDate = t
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, err, "malformed discount request")
	}
	return &out, nil
}

func decodeStatusRequest(body []byte) (string, error) {
	var status string
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "status" {
			return d.Skip()
		}
		v, err := d.Str()
		status = v
		return err
	})
	if err != nil {
		return "", apperr.Wrap(apperr.InvalidArgument, err, "malformed status request")
	}
	if status == "" {
		return "", apperr.New(apperr.InvalidArgument, "status is required")
	}
	return status, nil
}

func decodeTime(d *jx.Decoder) (time.Time, error) {
	v, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}
