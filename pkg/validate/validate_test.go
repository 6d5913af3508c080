package validate_test

import (
	"testing"

	"github.com/shashiranjanraj/kisanmart/pkg/validate"
)

type address struct {
	City    string `json:"city"    validate:"required"`
	ZipCode string `json:"zipCode" validate:"required,min=4,max=10"`
}

type line struct {
	Product  string `json:"product"  validate:"required,objectid"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type checkoutInput struct {
	Email   string   `json:"email"   validate:"required,email"`
	Method  string   `json:"method"  validate:"required,in=Cash on Delivery|UPI|Razorpay"`
	Website string   `json:"website" validate:"nullable,url"`
	Rating  float64  `json:"rating"  validate:"nullable,gte=0,lte=5"`
	Address address  `json:"address" validate:"required,dive"`
	Items   []line   `json:"items"   validate:"required,dive"`
	Total   *float64 `json:"total"   validate:"nullable,gte=0"`
}

func validInput() checkoutInput {
	return checkoutInput{
		Email:   "farmer@example.com",
		Method:  "Cash on Delivery",
		Address: address{City: "Nashik", ZipCode: "422001"},
		Items:   []line{{Product: "64b7f0c2a1b2c3d4e5f60718", Quantity: 2}},
	}
}

func TestValidInput(t *testing.T) {
	if errs := validate.Struct(validInput()); validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredFails(t *testing.T) {
	errs := validate.Struct(checkoutInput{})
	for _, field := range []string{"email", "method", "address", "items"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("expected %s to be required, got %v", field, errs)
		}
	}
	if _, ok := errs["website"]; ok {
		t.Error("nullable website should be skipped when empty")
	}
}

func TestInRuleAcceptsValuesWithSpaces(t *testing.T) {
	in := validInput()
	in.Method = "Barter"
	errs := validate.Struct(in)
	if errs["method"] != "The selected method is invalid." {
		t.Errorf("unexpected message: %q", errs["method"])
	}
}

func TestDiveReportsNestedPaths(t *testing.T) {
	in := validInput()
	in.Address.ZipCode = "12"
	in.Items = append(in.Items, line{Product: "nope", Quantity: 0})

	errs := validate.Struct(&in)
	if _, ok := errs["address.zipCode"]; !ok {
		t.Errorf("expected address.zipCode error, got %v", errs)
	}
	if _, ok := errs["items.1.product"]; !ok {
		t.Errorf("expected items.1.product error, got %v", errs)
	}
	if _, ok := errs["items.1.quantity"]; !ok {
		t.Errorf("expected items.1.quantity error, got %v", errs)
	}
	if _, ok := errs["items.0.product"]; ok {
		t.Error("first item is valid")
	}
}

func TestNumericBounds(t *testing.T) {
	in := validInput()
	in.Rating = 7
	neg := -1.0
	in.Total = &neg
	errs := validate.Struct(in)
	if _, ok := errs["rating"]; !ok {
		t.Error("expected rating upper bound error")
	}
	if _, ok := errs["total"]; !ok {
		t.Error("expected total lower bound error")
	}
}

func TestEmailAndURL(t *testing.T) {
	in := validInput()
	in.Email = "not-an-email"
	in.Website = "ftp://example.com"
	errs := validate.Struct(in)
	if _, ok := errs["email"]; !ok {
		t.Error("expected email validation error")
	}
	if _, ok := errs["website"]; !ok {
		t.Error("expected url validation error")
	}
}
