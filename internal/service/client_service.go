package service

import (
	"context"
	"strings"

	"github.com/hexavel/clientshare/internal/model"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
	"github.com/hexavel/clientshare/internal/pkg/timeutil"
	"github.com/hexavel/clientshare/internal/repo"
)

type ClientService struct {
	clients *repo.ClientRepo
}

func NewClientService(clients *repo.ClientRepo) *ClientService {
	return &ClientService{clients: clients}
}

type ClientInput struct {
	Name  string
	Email string
}

func (s *ClientService) Create(ctx context.Context, ownerID string, input ClientInput) (*model.Client, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	now := timeutil.NowUnix()
	client := &model.Client{
		ID:      newID(),
		OwnerID: ownerID,
		Name:    name,
		Email:   strings.TrimSpace(input.Email),
		State:   repo.ClientStateNormal,
		Ctime:   now,
		Mtime:   now,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Get(ctx context.Context, ownerID, clientID string) (*model.Client, error) {
	return s.clients.GetByOwner(ctx, ownerID, clientID)
}

func (s *ClientService) List(ctx context.Context, ownerID string) ([]model.Client, error) {
	return s.clients.ListByOwner(ctx, ownerID)
}

func (s *ClientService) Update(ctx context.Context, ownerID, clientID string, input ClientInput) (*model.Client, error) {
	client, err := s.clients.GetByOwner(ctx, ownerID, clientID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	client.Name = name
	client.Email = strings.TrimSpace(input.Email)
	client.Mtime = timeutil.NowUnix()
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *ClientService) Delete(ctx context.Context, ownerID, clientID string) error {
	return s.clients.Delete(ctx, ownerID, clientID, timeutil.NowUnix())
}
