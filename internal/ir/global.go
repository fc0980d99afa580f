package ir

// Linkage describes a global's visibility, mirroring the subset the Global
// Layout Builder and post-set logic need to distinguish (§4.2).
type Linkage uint8

const (
	LinkageInternal Linkage = iota
	LinkageExternal
	LinkageExternalDeclaration // no initializer: a non-initialized external
)

// Global is one module-level variable. Init is nil for an external
// declaration. Alignment of 0 means "use the default (8)" per §4.2.
type Global struct {
	Name      string
	Type      *Type
	Alignment int
	Linkage   Linkage
	Init      *Constant
	Named     bool // exposed by symbolic name under relocation (§3)
}
