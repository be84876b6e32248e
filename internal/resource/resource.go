// Package resource maps (type, id) references onto the per-type tables so
// sharing and access checks can treat every shareable thing uniformly.
package resource

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	boarddomain "github.com/workhive/workhive/internal/board/domain"
	contactdomain "github.com/workhive/workhive/internal/contact/domain"
	financedomain "github.com/workhive/workhive/internal/finance/domain"
	projectdomain "github.com/workhive/workhive/internal/project/domain"
)

const (
	TypeProject  = "mindmap_project"
	TypeBoard    = "board"
	TypeContact  = "contact"
	TypeCompany  = "company"
	TypeReminder = "reminder"
)

// Ref names one shareable resource.
type Ref struct {
	Type string       `json:"type"`
	ID   snowflake.ID `json:"id"`
}

// Info is what the per-type tables agree on.
type Info struct {
	Ref           Ref
	WorkspaceID   snowflake.ID
	OwnerUsername string
	Name          string
}

var (
	ErrUnknownType = errors.New("unknown_resource_type")
	ErrNotFound    = errors.New("resource_not_found")
)

// ValidType reports whether t names a shareable resource type.
func ValidType(t string) bool {
	switch t {
	case TypeProject, TypeBoard, TypeContact, TypeCompany, TypeReminder:
		return true
	}
	return false
}

type Resolver interface {
	Resolve(ctx context.Context, ref Ref) (*Info, error)
}

type resolver struct {
	projects  projectdomain.Service
	boards    boarddomain.Service
	contacts  contactdomain.Service
	companies financedomain.Service
}

func NewResolver(projects projectdomain.Service, boards boarddomain.Service, contacts contactdomain.Service, companies financedomain.Service) Resolver {
	return &resolver{projects: projects, boards: boards, contacts: contacts, companies: companies}
}

func (r *resolver) Resolve(ctx context.Context, ref Ref) (*Info, error) {
	switch ref.Type {
	case TypeProject:
		p, err := r.projects.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, projectdomain.ErrNotFound)
		}
		return &Info{Ref: ref, WorkspaceID: p.WorkspaceID, OwnerUsername: p.OwnerUsername, Name: p.Name}, nil
	case TypeBoard:
		b, err := r.boards.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, boarddomain.ErrNotFound)
		}
		return &Info{Ref: ref, WorkspaceID: b.WorkspaceID, OwnerUsername: b.OwnerUsername, Name: b.Name}, nil
	case TypeContact:
		c, err := r.contacts.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, contactdomain.ErrNotFound)
		}
		return &Info{Ref: ref, WorkspaceID: c.WorkspaceID, OwnerUsername: c.OwnerUsername, Name: c.Name}, nil
	case TypeCompany:
		c, err := r.companies.GetCompany(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, financedomain.ErrCompanyNotFound)
		}
		return &Info{Ref: ref, WorkspaceID: c.WorkspaceID, OwnerUsername: c.OwnerUsername, Name: c.Name}, nil
	case TypeReminder:
		rem, err := r.contacts.GetReminder(ctx, ref.ID)
		if err != nil {
			return nil, notFound(err, contactdomain.ErrNotFound)
		}
		return &Info{Ref: ref, WorkspaceID: rem.WorkspaceID, OwnerUsername: rem.OwnerUsername, Name: rem.Title}, nil
	default:
		return nil, ErrUnknownType
	}
}

func notFound(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return ErrNotFound
	}
	return err
}
