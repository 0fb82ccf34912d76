package models

import "github.com/google/uuid"

// GuideRef is either a ResolvedGuide (foreign key to a faculty profile) or an
// UnresolvedGuide (free-text name kept from older submissions).
type GuideRef interface {
	isGuideRef()
}

type ResolvedGuide struct {
	ID uuid.UUID
}

type UnresolvedGuide struct {
	Name string
}

func (ResolvedGuide) isGuideRef()   {}
func (UnresolvedGuide) isGuideRef() {}
