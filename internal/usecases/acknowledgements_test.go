package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sand/preipo-invest/backend/internal/entities"
)

func TestMissingRisks(t *testing.T) {
	required := entities.RequiredRiskTypes()

	tests := []struct {
		name     string
		provided []entities.RiskType
		want     []entities.RiskType
	}{
		{
			name:     "all provided",
			provided: required,
			want:     []entities.RiskType{},
		},
		{
			name:     "none provided",
			provided: nil,
			want:     required,
		},
		{
			name:     "order of provided does not matter",
			provided: []entities.RiskType{entities.RiskMaterialChanges, entities.RiskIlliquidity},
			want:     []entities.RiskType{entities.RiskNoGuarantee, entities.RiskPlatformNonAdvisory},
		},
		{
			name: "duplicates count once",
			provided: []entities.RiskType{
				entities.RiskIlliquidity, entities.RiskIlliquidity,
				entities.RiskNoGuarantee, entities.RiskPlatformNonAdvisory,
			},
			want: []entities.RiskType{entities.RiskMaterialChanges},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingRisks(tt.provided, required))
		})
	}
}
