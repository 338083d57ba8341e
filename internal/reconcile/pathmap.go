package reconcile

import "path/filepath"

// PathMapper translates a working path back to the original document path.
// Conversion pipelines hand providers derived artifacts (page images, OCR
// text) whose paths differ from the source document.
type PathMapper interface {
	// Original returns the source document path for a working path.
	Original(workingPath string) string
}

// PassthroughMapper is used by pipelines that send documents unmodified.
type PassthroughMapper struct{}

// Original returns the path unchanged.
func (PassthroughMapper) Original(workingPath string) string {
	return workingPath
}

// DerivedMapper maps converted artifact paths back to the documents they
// came from. Lookup falls back to stem equality so per-page suffixes
// ("_page_1") still resolve.
type DerivedMapper struct {
	byWorking map[string]string
	byStem    map[string]string
}

// NewDerivedMapper builds a mapper from workingPath -> originalPath pairs.
func NewDerivedMapper(pairs map[string]string) *DerivedMapper {
	mapper := &DerivedMapper{
		byWorking: make(map[string]string, len(pairs)),
		byStem:    make(map[string]string, len(pairs)),
	}

	for working, original := range pairs {
		mapper.byWorking[working] = original

		stem := stemOf(working)
		if stem != "" {
			mapper.byStem[stem] = original
		}
	}

	return mapper
}

// Original implements PathMapper.
func (m *DerivedMapper) Original(workingPath string) string {
	if original, ok := m.byWorking[workingPath]; ok {
		return original
	}

	if original, ok := m.byStem[stemOf(workingPath)]; ok {
		return original
	}

	return workingPath
}

func stemOf(path string) string {
	base := filepath.Base(path)

	ext := filepath.Ext(base)

	return base[:len(base)-len(ext)]
}
