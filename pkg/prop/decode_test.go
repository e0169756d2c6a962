package prop

import (
	"errors"
	"testing"
)

type address struct {
	City string `mapstructure:"city"`
}

type person struct {
	Name    string  `mapstructure:"name"`
	Age     int     `mapstructure:"age"`
	Address address `mapstructure:"address"`
}

func TestDecodeDict(t *testing.T) {
	name := New("ada")
	age := New(36)
	city := New("london")
	form := Dict(map[string]any{
		"name":    name,
		"age":     age,
		"address": map[string]any{"city": city},
	})

	decoded := Decode[person](form)
	want := person{Name: "ada", Age: 36, Address: address{City: "london"}}
	if decoded.Value() != want {
		t.Fatalf("expected %+v, got %+v", want, decoded.Value())
	}

	city.Next("paris")
	if decoded.Value().Address.City != "paris" {
		t.Errorf("expected paris, got %+v", decoded.Value())
	}
}

func TestDecodeErrors(t *testing.T) {
	age := New[any]("thirty")
	decoded := Decode[person](Dict(map[string]any{"age": age}))

	if decoded.Err() == nil {
		t.Fatal("expected a decode error for a string age")
	}

	bad := errors.New("bad age")
	age.SetError(bad)
	var de *DictError
	if !errors.As(decoded.Err(), &de) {
		t.Errorf("expected upstream DictError forwarded, got %v", decoded.Err())
	}
}
