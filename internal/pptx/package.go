package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Relationship types, matched by suffix so both transitional and strict
// namespaces work.
const (
	relSlide        = "/slide"
	relSlideLayout  = "/slideLayout"
	relSlideMaster  = "/slideMaster"
	relNotesSlide   = "/notesSlide"
	relTheme        = "/theme"
	relHyperlink    = "/hyperlink"
	relOfficeDoc    = "/officeDocument"
	targetExternal  = "External"
	defaultMainPart = "ppt/presentation.xml"
)

const maxPartSize = 64 << 20

// opcPackage is a read-only view of the zip parts in a deck.
type opcPackage struct {
	files map[string]*zip.File
	rels  map[string]map[string]xRel
}

func openPackage(r io.ReaderAt, size int64) (*opcPackage, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	p := &opcPackage{
		files: make(map[string]*zip.File, len(zr.File)),
		rels:  make(map[string]map[string]xRel),
	}
	for _, f := range zr.File {
		p.files[strings.TrimPrefix(f.Name, "/")] = f
	}
	return p, nil
}

func (p *opcPackage) has(name string) bool {
	_, ok := p.files[name]
	return ok
}

func (p *opcPackage) read(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("part %s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
	if err != nil {
		return nil, fmt.Errorf("read part %s: %w", name, err)
	}
	return data, nil
}

func (p *opcPackage) decode(name string, v any) error {
	data, err := p.read(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse part %s: %w", name, err)
	}
	return nil
}

// relsName returns the relationships part for a source part.
func relsName(part string) string {
	dir, file := path.Split(part)
	return dir + "_rels/" + file + ".rels"
}

// relationships returns the rels of part keyed by Id. A part without a rels
// file has none.
func (p *opcPackage) relationships(part string) map[string]xRel {
	if rels, ok := p.rels[part]; ok {
		return rels
	}
	out := make(map[string]xRel)
	var x xRelationships
	if p.has(relsName(part)) {
		if err := p.decode(relsName(part), &x); err == nil {
			for _, r := range x.Rels {
				out[r.ID] = r
			}
		}
	}
	p.rels[part] = out
	return out
}

// resolve turns a relationship target into a package part name.
func resolve(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

// target returns the part an internal relationship points to.
func (p *opcPackage) target(source, rid string) (string, bool) {
	r, ok := p.relationships(source)[rid]
	if !ok || r.TargetMode == targetExternal {
		return "", false
	}
	return resolve(source, r.Target), true
}

// firstOfType returns the first internal target whose type ends in suffix.
func (p *opcPackage) firstOfType(source, suffix string) (string, bool) {
	var best string
	for id, r := range p.relationships(source) {
		if r.TargetMode == targetExternal || !strings.HasSuffix(r.Type, suffix) {
			continue
		}
		if best == "" || id < best {
			best = id
		}
	}
	if best == "" {
		return "", false
	}
	return p.target(source, best)
}

// mainPart finds the presentation part through the package rels.
func (p *opcPackage) mainPart() string {
	if part, ok := p.firstOfType("", relOfficeDoc); ok && p.has(part) {
		return part
	}
	return defaultMainPart
}
