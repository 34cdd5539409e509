package synth

// Stats counts what a synthesis step generated. Steps return their own
// Stats and Generate sums them.
type Stats struct {
	CraftedClasses   int `json:"crafted_classes" yaml:"crafted_classes"`
	MarkerInterfaces int `json:"marker_interfaces" yaml:"marker_interfaces"`
	Classes          int `json:"generated_classes" yaml:"generated_classes"`
	Methods          int `json:"generated_methods" yaml:"generated_methods"`
	Bodies           int `json:"bodies" yaml:"bodies"`
	FailedBodies     int `json:"failed_bodies" yaml:"failed_bodies"`
	MissingBodies    int `json:"missing_bodies" yaml:"missing_bodies"`
	LPTFields        int `json:"lpt_fields" yaml:"lpt_fields"`
}

// Add returns the field-wise sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		CraftedClasses:   s.CraftedClasses + o.CraftedClasses,
		MarkerInterfaces: s.MarkerInterfaces + o.MarkerInterfaces,
		Classes:          s.Classes + o.Classes,
		Methods:          s.Methods + o.Methods,
		Bodies:           s.Bodies + o.Bodies,
		FailedBodies:     s.FailedBodies + o.FailedBodies,
		MissingBodies:    s.MissingBodies + o.MissingBodies,
		LPTFields:        s.LPTFields + o.LPTFields,
	}
}
