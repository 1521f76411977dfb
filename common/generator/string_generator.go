package generator

import (
	"strings"

	"github.com/Pallinder/go-randomdata"
	"github.com/satori/go.uuid"
)

type StringGenerator struct {
}

func (n *StringGenerator) GenerateUuid() string {
	return uuid.NewV4().String()
}

// GenerateObjectName returns a unique object name under folder, keeping the extension.
func (n *StringGenerator) GenerateObjectName(folder, extension string) string {
	name := n.GenerateUuid() + extension
	if folder == "" {
		return name
	}
	return strings.TrimSuffix(folder, "/") + "/" + name
}

// GeneratePersonName returns a plausible first name, used to seed fixtures.
func (n *StringGenerator) GeneratePersonName() string {
	return randomdata.FirstName(randomdata.RandomGender)
}
