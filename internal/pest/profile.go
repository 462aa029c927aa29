package pest

const (
	unknownValue = "Unknown"
	naValue      = "N/A"
)

// Profile is the descriptive reference entry for a pest taxon
type Profile struct {
	Title                    string `json:"title" yaml:"title"`
	Order                    string `json:"order" yaml:"order"`
	Family                   string `json:"family" yaml:"family"`
	Species                  string `json:"species" yaml:"species"`
	FilipinoNames            string `json:"filipinoNames" yaml:"filipinoNames"`
	StagesOfDevelopment      string `json:"stagesOfDevelopment" yaml:"stagesOfDevelopment"`
	DamageCharacteristics    string `json:"damageCharacteristics" yaml:"damageCharacteristics"`
	TreatmentRecommendations string `json:"treatmentRecommendations" yaml:"treatmentRecommendations"`
	Image                    string `json:"image,omitempty" yaml:"image,omitempty"` // Reference photo URL
}

// Placeholder returns the profile used for labels the library does not know.
// The label itself becomes the title so the scan still reads sensibly.
func Placeholder(label string) Profile {
	return Profile{
		Title:                    label,
		Order:                    unknownValue,
		Family:                   unknownValue,
		Species:                  unknownValue,
		FilipinoNames:            naValue,
		StagesOfDevelopment:      naValue,
		DamageCharacteristics:    naValue,
		TreatmentRecommendations: naValue,
	}
}

// withDefaults fills blank descriptive fields so a partially written library entry renders like the placeholder
func (p Profile) withDefaults(label string) Profile {
	if p.Title == "" {
		p.Title = label
	}
	for _, f := range []*string{&p.Order, &p.Family, &p.Species} {
		if *f == "" {
			*f = unknownValue
		}
	}
	for _, f := range []*string{&p.FilipinoNames, &p.StagesOfDevelopment, &p.DamageCharacteristics, &p.TreatmentRecommendations} {
		if *f == "" {
			*f = naValue
		}
	}
	return p
}
