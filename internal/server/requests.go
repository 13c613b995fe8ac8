package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tournevent/shipping/internal/domain"
	"github.com/tournevent/shipping/internal/shipping"
	"github.com/tournevent/shipping/pkg/shipper"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type packageRequest struct {
	Weight        float64 `json:"weight" validate:"gte=0"`
	Length        float64 `json:"length" validate:"gte=0"`
	Width         float64 `json:"width" validate:"gte=0"`
	Height        float64 `json:"height" validate:"gte=0"`
	WeightUnit    string  `json:"weightUnit" validate:"omitempty,oneof=kg lb"`
	DimensionUnit string  `json:"dimensionUnit" validate:"omitempty,oneof=cm in"`
}

type itemRequest struct {
	ProductID string   `json:"productId"`
	Name      string   `json:"name"`
	Quantity  int      `json:"quantity" validate:"gte=1"`
	UnitPrice float64  `json:"unitPrice" validate:"gte=0"`
	Total     float64  `json:"total" validate:"gte=0"`
	Weight    *float64 `json:"weight"`
}

type dimensionsRequest struct {
	Length float64 `json:"length" validate:"gt=0"`
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type optionsRequest struct {
	Service           string             `json:"service"`
	Insurance         *bool              `json:"insurance"`
	SignatureRequired *bool              `json:"signatureRequired"`
	CashOnDelivery    *bool              `json:"cashOnDelivery"`
	Dimensions        *dimensionsRequest `json:"dimensions"`
}

func (o optionsRequest) options() shipping.Options {
	opts := shipping.Options{
		Service:           strings.TrimSpace(o.Service),
		Insurance:         o.Insurance,
		SignatureRequired: o.SignatureRequired,
		CashOnDelivery:    o.CashOnDelivery,
	}
	if o.Dimensions != nil {
		opts.Dimensions = &shipping.Dimensions{
			Length: o.Dimensions.Length,
			Width:  o.Dimensions.Width,
			Height: o.Dimensions.Height,
		}
	}
	return opts
}

// orderRequest is a caller-supplied order for quotes and direct creation.
type orderRequest struct {
	OrderID       string           `json:"orderId"`
	Destination   *shipper.Address `json:"destination"`
	Packages      []packageRequest `json:"packages" validate:"dive"`
	Items         []itemRequest    `json:"items" validate:"dive"`
	Weight        float64          `json:"weight" validate:"gte=0"`
	DeclaredValue float64          `json:"declaredValue" validate:"gte=0"`
	Currency      string           `json:"currency" validate:"omitempty,len=3"`
	optionsRequest
}

func (o *orderRequest) input() shipping.ShipmentInput {
	in := shipping.ShipmentInput{
		OrderID:       o.OrderID,
		Destination:   o.Destination,
		Weight:        o.Weight,
		DeclaredValue: o.DeclaredValue,
		Currency:      strings.ToUpper(o.Currency),
		Options:       o.options(),
	}
	for _, p := range o.Packages {
		in.Packages = append(in.Packages, shipper.Package{
			Weight:        p.Weight,
			Length:        p.Length,
			Width:         p.Width,
			Height:        p.Height,
			WeightUnit:    shipper.WeightUnit(p.WeightUnit),
			DimensionUnit: shipper.DimensionUnit(p.DimensionUnit),
		})
	}
	for _, item := range o.Items {
		in.Items = append(in.Items, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
			Weight:    item.Weight,
		})
	}
	return in
}

type ratesRequest struct {
	Provider string        `json:"provider" validate:"required"`
	Order    *orderRequest `json:"order"`
}

type createShipmentRequest struct {
	Provider string        `json:"provider" validate:"required"`
	Order    *orderRequest `json:"order"`
}

type orderShipmentRequest struct {
	Provider string `json:"provider" validate:"required"`
	optionsRequest
}

type validateRequest struct {
	Provider string `json:"provider" validate:"required"`
}

// decode reads a JSON body into dst and validates it.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return shipping.NewValidationError("request body is required")
		}
		return shipping.NewValidationError("invalid request body: %v", err)
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := messageForTag(fe)
		fields[fe.Field()] = msg
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), msg))
	}
	return &shipping.ValidationError{Message: strings.Join(msgs, "; "), Fields: fields}
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must have length " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed on '" + fe.Tag() + "' validation"
	}
}
