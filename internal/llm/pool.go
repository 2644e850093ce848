package llm

// ModelPool holds a list of model names for round-robin assignment and fallback.
type ModelPool struct {
	models []string
}

// NewModelPool creates a pool from model names. models must have at least one entry.
func NewModelPool(models []string) *ModelPool {
	return &ModelPool{models: models}
}

// Assign returns the model at index % pool size (round-robin).
func (p *ModelPool) Assign(index int) string {
	return p.models[index%len(p.models)]
}

// Primary returns the first model in the pool.
func (p *ModelPool) Primary() string {
	return p.models[0]
}

// Len returns the number of models in the pool.
func (p *ModelPool) Len() int {
	return len(p.models)
}

// Order returns every model once, starting at the one assigned to index.
// Callers walk it to fall back after a failure.
func (p *ModelPool) Order(index int) []string {
	out := make([]string, 0, len(p.models))
	for i := range p.models {
		out = append(out, p.Assign(index+i))
	}
	return out
}
