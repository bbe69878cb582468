package handler

import (
	cataloguedomain "learning-app-go/internal/domain/catalogue"
	"learning-app-go/pkg/logger"
)

type Handlers struct {
	Catalogue *cataloguedomain.Service
	log       logger.Logger
}

func New(catalogue *cataloguedomain.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Catalogue: catalogue,
		log:       logger.Component(log, "httpserver"),
	}
}
