package grpc

import (
	"encoding/json"
	"fmt"

	"github.com/abgdnv/beerstock/internal/service"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Ids travel as strings: structpb numbers are float64 and lose precision above 2^53.

// stockRequest is the payload of Increment and Decrement.
type stockRequest struct {
	ID       int64 `json:"id,string" validate:"gt=0"`
	Quantity int   `json:"quantity"  validate:"min=0,max=100"`
}

// beerMessage is the wire form of service.BeerDto.
type beerMessage struct {
	ID       int64  `json:"id,string"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Max      int    `json:"max"`
	Quantity int    `json:"quantity"`
	Type     string `json:"type"`
}

func encodeBeer(beer *service.BeerDto) (*structpb.Struct, error) {
	return toStruct(beerMessage(*beer))
}

func decodeBeer(s *structpb.Struct) (*service.BeerDto, error) {
	var msg beerMessage
	if err := fromStruct(s, &msg); err != nil {
		return nil, err
	}
	beer := service.BeerDto(msg)
	return &beer, nil
}

// fromStruct decodes s into dst through its JSON form, so dst's json tags define the field names.
func fromStruct(s *structpb.Struct, dst any) error {
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode struct: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("failed to decode struct: %w", err)
	}
	return nil
}

// toStruct encodes src into a structpb.Struct through its JSON form.
func toStruct(src any) (*structpb.Struct, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", src, err)
	}
	s := new(structpb.Struct)
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("failed to decode struct: %w", err)
	}
	return s, nil
}

func beersToList(beers []service.BeerDto) (*structpb.ListValue, error) {
	values := make([]*structpb.Value, 0, len(beers))
	for i := range beers {
		s, err := encodeBeer(&beers[i])
		if err != nil {
			return nil, err
		}
		values = append(values, structpb.NewStructValue(s))
	}
	return &structpb.ListValue{Values: values}, nil
}

func listToBeers(list *structpb.ListValue) ([]service.BeerDto, error) {
	beers := make([]service.BeerDto, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		beer, err := decodeBeer(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		beers = append(beers, *beer)
	}
	return beers, nil
}
