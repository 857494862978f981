package app

import "github.com/invopop/jsonschema"

// PackageDocument mirrors the accepted request shape for schema generation.
// The runtime pipeline works on untyped maps so that extra fields pass
// through untouched; this mirror exists only to publish the contract.
type PackageDocument struct {
	Package  PackageFields  `json:"package" jsonschema_description:"Production event header"`
	Products []ProductField `json:"products" jsonschema_description:"Materials consumed by the production"`
}

type PackageFields struct {
	ExternalDocID    int64  `json:"externalDocId" jsonschema_description:"Positive upstream document reference, the idempotency key"`
	Date             string `json:"date" jsonschema_description:"Production date, YYYY-MM-DD"`
	Name             string `json:"name" jsonschema_description:"Display name of the finished package"`
	UnitSalePrice    string `json:"unitSalePrice" jsonschema_description:"Non-negative unit sale price"`
	TaxRate          string `json:"taxRate" jsonschema_description:"Tax rate percent, one of 0, 11, 21"`
	TotalCost        string `json:"totalCost" jsonschema_description:"Total material cost; negative only for reversals"`
	Warehouse        string `json:"warehouse" jsonschema_description:"Warehouse code the movements post to"`
	ProducedQuantity string `json:"producedQuantity" jsonschema_description:"Non-zero produced quantity; negative for reversals"`
	Status           string `json:"status" jsonschema_description:"Upstream workflow status, pending or processing"`
}

type ProductField struct {
	Code     string `json:"code" jsonschema_description:"Raw material article code, up to 8 digits or a full 16-character code"`
	Quantity string `json:"quantity" jsonschema_description:"Non-zero consumed quantity, sign matching producedQuantity"`
	Value    string `json:"value" jsonschema_description:"Non-zero material cost contribution"`
}

// RequestSchema returns the JSON Schema of the accepted request document.
func RequestSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v PackageDocument
	return reflector.Reflect(v)
}
