package models

import "time"

// Domain is an area of expertise experts are grouped under.
type Domain struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (d Domain) Key() string { return d.ID }

func (d Domain) WithKey(id string) Domain {
	d.ID = id
	return d
}

func (d Domain) Index() map[string]string {
	return map[string]string{}
}

// Expert is reference data for a reviewer who can respond to content.
type Expert struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	ContactInformation string    `json:"contactInformation,omitempty"`
	DomainID           string    `json:"domainId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (e Expert) Key() string { return e.ID }

func (e Expert) WithKey(id string) Expert {
	e.ID = id
	return e
}

func (e Expert) Index() map[string]string {
	return map[string]string{"domainId": e.DomainID}
}
