package definition

import (
	"github.com/go-playground/validator/v10"
	"github.com/viant/nodeflow/service/meta"
)

type Option func(*Service)

// WithMetaService sets the meta service
func WithMetaService(meta *meta.Service) Option {
	return func(s *Service) {
		s.metaService = meta
	}
}

// WithValidator sets the struct validator.
func WithValidator(validate *validator.Validate) Option {
	return func(s *Service) {
		s.validate = validate
	}
}
