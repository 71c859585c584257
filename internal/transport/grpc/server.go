// Package grpc exposes the beer stock service over gRPC and provides a typed client for it.
package grpc

import (
	"context"
	"errors"
	"log/slog"

	beererrors "github.com/abgdnv/beerstock/internal/errors"
	"github.com/abgdnv/beerstock/internal/service"
	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// codeByError maps domain failures to gRPC codes. The first match wins.
var codeByError = []struct {
	target error
	code   codes.Code
}{
	{beererrors.ErrBeerNotFound, codes.NotFound},
	{beererrors.ErrBeerAlreadyRegistered, codes.AlreadyExists},
	{beererrors.ErrStockExceeded, codes.FailedPrecondition},
	{beererrors.ErrStockBelowZero, codes.FailedPrecondition},
	{beererrors.ErrInvalidAmount, codes.FailedPrecondition},
	{beererrors.ErrOptimisticLock, codes.Aborted},
}

// codeFor returns the gRPC code for err, Internal for anything unmapped.
func codeFor(err error) codes.Code {
	for _, m := range codeByError {
		if errors.Is(err, m.target) {
			return m.code
		}
	}
	return codes.Internal
}

type Server struct {
	service  service.StockService
	validate *validator.Validate
	logger   *slog.Logger
}

var _ BeerStockServer = (*Server)(nil)

func NewServer(service service.StockService, logger *slog.Logger) *Server {
	return &Server{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "grpc"),
	}
}

func (s *Server) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var dto service.BeerCreateDto
	if err := s.decodeValid(req, &dto); err != nil {
		return nil, err
	}
	created, err := s.service.Create(ctx, dto)
	if err != nil {
		return nil, s.toStatus(ctx, "Create", err)
	}
	return s.beerResponse(created)
}

func (s *Server) FindByName(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "name must not be empty")
	}
	found, err := s.service.FindByName(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "FindByName", err)
	}
	return s.beerResponse(found)
}

func (s *Server) FindByID(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req.GetValue() <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id: %d", req.GetValue())
	}
	found, err := s.service.FindByID(ctx, req.GetValue())
	if err != nil {
		return nil, s.toStatus(ctx, "FindByID", err)
	}
	return s.beerResponse(found)
}

func (s *Server) ListAll(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	beers, err := s.service.ListAll(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, "ListAll", err)
	}
	list, err := beersToList(beers)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode beer list", "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return list, nil
}

func (s *Server) DeleteByID(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	if req.GetValue() <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "invalid id: %d", req.GetValue())
	}
	if err := s.service.DeleteByID(ctx, req.GetValue()); err != nil {
		return nil, s.toStatus(ctx, "DeleteByID", err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Server) Increment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sr stockRequest
	if err := s.decodeValid(req, &sr); err != nil {
		return nil, err
	}
	updated, err := s.service.Increment(ctx, sr.ID, sr.Quantity)
	if err != nil {
		return nil, s.toStatus(ctx, "Increment", err)
	}
	return s.beerResponse(updated)
}

func (s *Server) Decrement(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var sr stockRequest
	if err := s.decodeValid(req, &sr); err != nil {
		return nil, err
	}
	updated, err := s.service.Decrement(ctx, sr.ID, sr.Quantity)
	if err != nil {
		return nil, s.toStatus(ctx, "Decrement", err)
	}
	return s.beerResponse(updated)
}

// decodeValid decodes and validates a request, returning an InvalidArgument status on failure.
func (s *Server) decodeValid(req *structpb.Struct, dst any) error {
	if err := fromStruct(req, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	return nil
}

func (s *Server) beerResponse(beer *service.BeerDto) (*structpb.Struct, error) {
	res, err := encodeBeer(beer)
	if err != nil {
		s.logger.Error("failed to encode beer", "error", err)
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return res, nil
}

// toStatus converts a service error to a gRPC status. Unmapped errors are logged and hidden.
func (s *Server) toStatus(ctx context.Context, method string, err error) error {
	code := codeFor(err)
	if code == codes.Internal {
		s.logger.ErrorContext(ctx, "service call failed", "method", method, "error", err)
		return status.Error(codes.Internal, "internal server error")
	}
	return status.Error(code, err.Error())
}
