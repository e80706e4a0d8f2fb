package connection

import (
	"context"

	"github.com/jackfish212/remotefs"
)

// Registrar is a collaborator that attaches to every session's Facade.
type Registrar interface {
	Register(ctx context.Context, f *remotefs.Facade) error
	Unregister(ctx context.Context, f *remotefs.Facade) error
}

// ProjectRegistrar is a collaborator that also needs the session's project.
type ProjectRegistrar interface {
	RegisterProject(ctx context.Context, project string, f *remotefs.Facade) error
	UnregisterProject(ctx context.Context, project string, f *remotefs.Facade) error
}

// Collaborator is either a Basic or a ProjectScoped binding.
type Collaborator interface {
	Name() string
	attach(ctx context.Context, s *Session) error
	detach(ctx context.Context, s *Session) error
}

// Basic binds a collaborator that only needs the Facade.
func Basic(name string, r Registrar) Collaborator {
	return basic{name: name, r: r}
}

// ProjectScoped binds a collaborator that receives the project as well.
func ProjectScoped(name string, r ProjectRegistrar) Collaborator {
	return projectScoped{name: name, r: r}
}

type basic struct {
	name string
	r    Registrar
}

func (b basic) Name() string { return b.name }

func (b basic) attach(ctx context.Context, s *Session) error {
	return b.r.Register(ctx, s.Facade)
}

func (b basic) detach(ctx context.Context, s *Session) error {
	return b.r.Unregister(ctx, s.Facade)
}

type projectScoped struct {
	name string
	r    ProjectRegistrar
}

func (p projectScoped) Name() string { return p.name }

func (p projectScoped) attach(ctx context.Context, s *Session) error {
	return p.r.RegisterProject(ctx, s.Credentials.Project, s.Facade)
}

func (p projectScoped) detach(ctx context.Context, s *Session) error {
	return p.r.UnregisterProject(ctx, s.Credentials.Project, s.Facade)
}
