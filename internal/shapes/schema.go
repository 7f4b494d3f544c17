package shapes

// Document is the declarative shapes section of a profile document. Class
// names are the handles checks bind to; compilation turns each class into a
// Shape.
type Document struct {
	Closed  bool                `yaml:"closed,omitempty"`
	Classes map[string]ClassDef `yaml:"classes,omitempty"`
}

// ClassDef declares the constraints for one class of graph entity.
type ClassDef struct {
	Target      string         `yaml:"target,omitempty"`     // entity type name, defaults to the class name
	Root        bool           `yaml:"root,omitempty"`       // select the root data entity instead
	Descriptor  bool           `yaml:"descriptor,omitempty"` // select the metadata file descriptor instead
	Description string         `yaml:"description,omitempty"`
	Closed      *bool          `yaml:"closed,omitempty"` // overrides the document-level default
	Properties  []PropertyDef  `yaml:"properties,omitempty"`
	Assertions  []AssertionDef `yaml:"assertions,omitempty"`
}

// PropertyDef declares the constraints on one property of the focus entity.
type PropertyDef struct {
	Path     string   `yaml:"path"`
	MinCount *int     `yaml:"minCount,omitempty"`
	MaxCount *int     `yaml:"maxCount,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
	Class    string   `yaml:"class,omitempty"`
	Pattern  string   `yaml:"pattern,omitempty"`
	Values   []string `yaml:"values,omitempty"`
	Message  string   `yaml:"message,omitempty"`
}

// AssertionDef declares an expression constraint evaluated per focus entity.
type AssertionDef struct {
	Expr    string `yaml:"expr"`
	Message string `yaml:"message,omitempty"`
}
