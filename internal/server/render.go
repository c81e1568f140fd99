package server

import (
	"context"
	"fmt"

	"github.com/conneroisu/exhibit/internal/errors"
)

// captureSurface records the published source and never loads.
type captureSurface struct {
	source string
}

func (c *captureSurface) SetSource(_ context.Context, url string) error {
	c.source = url
	return nil
}

func (c *captureSurface) OnLoad(func()) {}

func (c *captureSurface) ContentHeight(context.Context) (int, error) {
	return 0, errors.ErrSurfaceUnavailable
}

func (c *captureSurface) SetHeight(context.Context, int) error { return nil }

// Render composes the named exhibition once and returns the document. The
// exhibition is built from the configuration and destroyed afterwards.
func (s *Server) Render(ctx context.Context, name string) (string, error) {
	xc, ok := s.config.Exhibition(name)
	if !ok {
		return "", errors.ErrExhibitionNotFound(name)
	}
	s.startCompiler(ctx)

	x, _, err := s.build(ctx, xc, &captureSurface{}, true)
	if err != nil {
		return "", err
	}
	defer func() {
		if derr := x.Destroy(); derr != nil {
			s.logger.Warn(ctx, derr, "Destroy after render", "exhibition", name)
		}
	}()

	handle := x.Preview().CurrentHandle()
	res, ok := s.store.Get(handle.ID)
	if !ok {
		return "", errors.NewInternalError(errors.ErrCodeNoOutput, fmt.Sprintf("exhibition %s published nothing", name), nil)
	}
	return string(res.Content), nil
}
