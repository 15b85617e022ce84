package id

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type Generator struct{}

func New() *Generator {
	return &Generator{}
}

func (g *Generator) generate(prefix string) string {
	id, err := gonanoid.New(21)
	if err != nil {
		return prefix + "_fallback"
	}
	return prefix + "_" + id
}

func (g *Generator) GenerateRunID() string {
	return g.generate("run")
}

func (g *Generator) GenerateCandidateID() string {
	return g.generate("cand")
}

func (g *Generator) GenerateExampleID() string {
	return g.generate("ex")
}

func (g *Generator) GenerateDocumentID() string {
	return g.generate("doc")
}

func (g *Generator) GenerateRequestID() string {
	return g.generate("req")
}
