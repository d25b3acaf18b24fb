// Package pptx reads PowerPoint Open XML decks into the domain model used
// by the analyzer. It resolves what the checks need from the slide
// layout, master and theme: layout names, inherited placeholder
// positions, backgrounds and scheme colors.
package pptx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"slideaudit/internal/domain"
)

// ErrUnreadable is returned when the file is not a readable deck at all.
// Problems inside individual slides do not produce it.
var ErrUnreadable = errors.New("unreadable presentation")

// Default 4:3 slide size in EMU.
const (
	defaultSlideWidth  = 9144000
	defaultSlideHeight = 6858000
)

type Reader struct {
	log *zap.Logger
}

func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log}
}

// Open reads a deck from disk with a no-op logger.
func Open(path string) (*domain.Presentation, error) {
	return NewReader(nil).Open(path)
}

func (r *Reader) Open(file string) (*domain.Presentation, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return r.Read(f, st.Size(), name)
}

// Read parses a deck from any random-access source.
func (r *Reader) Read(ra io.ReaderAt, size int64, name string) (*domain.Presentation, error) {
	pkg, err := openPackage(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	main := pkg.mainPart()
	var xp xPresentation
	if err := pkg.decode(main, &xp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	pres := &domain.Presentation{
		Name:        name,
		MasterCount: len(xp.MasterIDs),
		SlideWidth:  xp.SlideSize.Cx,
		SlideHeight: xp.SlideSize.Cy,
	}
	if pres.SlideWidth == 0 || pres.SlideHeight == 0 {
		pres.SlideWidth, pres.SlideHeight = defaultSlideWidth, defaultSlideHeight
	}

	d := &deck{
		pkg:     pkg,
		log:     r.log,
		layouts: make(map[string]*layoutInfo),
		masters: make(map[string]*masterInfo),
	}
	for i, id := range xp.SlideIDs {
		number := i + 1
		part, ok := pkg.target(main, id.RID)
		if !ok {
			r.log.Warn("slide relationship missing", zap.Int("slide", number), zap.String("rid", id.RID))
			pres.Slides = append(pres.Slides, domain.Slide{Number: number})
			continue
		}
		slide, err := d.slide(part, number)
		if err != nil {
			r.log.Warn("slide unreadable, analyzing as empty", zap.Int("slide", number), zap.Error(err))
			slide = domain.Slide{Number: number}
		}
		pres.Slides = append(pres.Slides, slide)
	}
	return pres, nil
}

type placeholder struct {
	typ  string
	idx  string
	geom *domain.Geometry
}

type masterInfo struct {
	palette      *palette
	background   *domain.Fill
	placeholders []placeholder
}

type layoutInfo struct {
	name         string
	master       *masterInfo
	background   *domain.Fill
	placeholders []placeholder
}

// deck caches layouts and masters while slides are read.
type deck struct {
	pkg     *opcPackage
	log     *zap.Logger
	layouts map[string]*layoutInfo
	masters map[string]*masterInfo
}

func (d *deck) master(part string) *masterInfo {
	if m, ok := d.masters[part]; ok {
		return m
	}
	m := &masterInfo{palette: newPalette(nil, nil)}
	d.masters[part] = m

	var xm xSlidePart
	if err := d.pkg.decode(part, &xm); err != nil {
		d.log.Debug("slide master unreadable", zap.String("part", part), zap.Error(err))
		return m
	}
	var theme *xTheme
	if tp, ok := d.pkg.firstOfType(part, relTheme); ok {
		var xt xTheme
		if err := d.pkg.decode(tp, &xt); err == nil {
			theme = &xt
		}
	}
	m.palette = newPalette(theme, xm.ClrMap)
	ctx := &shapeContext{pkg: d.pkg, part: part, palette: m.palette}
	m.background = ctx.background(xm.CSld.Bg)
	m.placeholders = collectPlaceholders(&xm.CSld.Tree)
	return m
}

func (d *deck) layout(part string) *layoutInfo {
	if l, ok := d.layouts[part]; ok {
		return l
	}
	l := &layoutInfo{}
	d.layouts[part] = l
	if mp, ok := d.pkg.firstOfType(part, relSlideMaster); ok {
		l.master = d.master(mp)
	} else {
		l.master = &masterInfo{palette: newPalette(nil, nil)}
	}
	var xl xSlidePart
	if err := d.pkg.decode(part, &xl); err != nil {
		d.log.Debug("slide layout unreadable", zap.String("part", part), zap.Error(err))
		return l
	}
	l.name = xl.CSld.Name
	ctx := &shapeContext{pkg: d.pkg, part: part, palette: l.master.palette}
	l.background = ctx.background(xl.CSld.Bg)
	l.placeholders = collectPlaceholders(&xl.CSld.Tree)
	return l
}

func (d *deck) slide(part string, number int) (domain.Slide, error) {
	var xs xSlidePart
	if err := d.pkg.decode(part, &xs); err != nil {
		return domain.Slide{}, err
	}
	layout := &layoutInfo{master: &masterInfo{palette: newPalette(nil, nil)}}
	if lp, ok := d.pkg.firstOfType(part, relSlideLayout); ok {
		layout = d.layout(lp)
	}

	ctx := &shapeContext{pkg: d.pkg, part: part, palette: layout.master.palette, layout: layout}
	slide := domain.Slide{
		Number:     number,
		LayoutName: layout.name,
		Shapes:     ctx.tree(&xs.CSld.Tree, identity(), nil),
		Background: ctx.background(xs.CSld.Bg),
	}
	if slide.Background == nil {
		slide.Background = layout.background
	}
	if slide.Background == nil {
		slide.Background = layout.master.background
	}

	if np, ok := d.pkg.firstOfType(part, relNotesSlide); ok {
		notes, err := d.notes(np, layout.master.palette)
		if err != nil {
			d.log.Debug("notes unreadable", zap.Int("slide", number), zap.Error(err))
		}
		slide.Notes = notes
	}
	return slide, nil
}

// notes returns the body placeholder of a notes slide.
func (d *deck) notes(part string, pal *palette) (*domain.TextFrame, error) {
	var xn xSlidePart
	if err := d.pkg.decode(part, &xn); err != nil {
		return nil, err
	}
	ctx := &shapeContext{pkg: d.pkg, part: part, palette: pal}
	for _, n := range xn.CSld.Tree.Nodes {
		if n.Sp == nil || n.Sp.Nv.NvPr.Ph == nil || n.Sp.Nv.NvPr.Ph.Type != "body" {
			continue
		}
		return ctx.textFrame(n.Sp.Text, nil), nil
	}
	return nil, nil
}

func collectPlaceholders(t *xShapeTree) []placeholder {
	var out []placeholder
	for _, n := range t.Nodes {
		if n.Sp == nil || n.Sp.Nv.NvPr.Ph == nil {
			continue
		}
		ph := n.Sp.Nv.NvPr.Ph
		p := placeholder{typ: normalizePhType(ph.Type), idx: ph.Idx}
		if x := n.Sp.SpPr.Xfrm; x != nil && x.Off != nil && x.Ext != nil {
			p.geom = &domain.Geometry{Left: x.Off.X, Top: x.Off.Y, Width: x.Ext.Cx, Height: x.Ext.Cy}
		}
		out = append(out, p)
	}
	return out
}

func normalizePhType(t string) string {
	switch t {
	case "", "obj":
		return "body"
	}
	return t
}

// masterPhType maps a layout placeholder type to the master placeholder it
// inherits from.
func masterPhType(t string) string {
	switch t {
	case "ctrTitle":
		return "title"
	case "subTitle", "obj", "":
		return "body"
	}
	return t
}

func phKind(ph *xPh) domain.PlaceholderKind {
	if ph == nil {
		return domain.PlaceholderNone
	}
	switch normalizePhType(ph.Type) {
	case "title":
		return domain.PlaceholderTitle
	case "ctrTitle":
		return domain.PlaceholderCenterTitle
	case "subTitle":
		return domain.PlaceholderSubtitle
	case "body":
		return domain.PlaceholderBody
	case "ftr":
		return domain.PlaceholderFooter
	case "sldNum":
		return domain.PlaceholderSlideNumber
	case "dt":
		return domain.PlaceholderDate
	case "pic":
		return domain.PlaceholderPicture
	}
	return domain.PlaceholderOther
}

// transform maps child coordinates of a group onto the slide.
type transform struct {
	offX, offY     int64
	chOffX, chOffY int64
	sx, sy         float64
}

func identity() transform {
	return transform{sx: 1, sy: 1}
}

func (t transform) apply(g domain.Geometry) domain.Geometry {
	return domain.Geometry{
		Left:   t.offX + int64(float64(g.Left-t.chOffX)*t.sx),
		Top:    t.offY + int64(float64(g.Top-t.chOffY)*t.sy),
		Width:  int64(float64(g.Width) * t.sx),
		Height: int64(float64(g.Height) * t.sy),
	}
}

// child returns the transform for members of a group whose own geometry on
// the slide is g.
func (t transform) child(g domain.Geometry, x *xXfrm) transform {
	if x == nil || x.ChOff == nil || x.ChExt == nil || x.ChExt.Cx == 0 || x.ChExt.Cy == 0 {
		return transform{offX: g.Left, offY: g.Top, sx: t.sx, sy: t.sy, chOffX: g.Left, chOffY: g.Top}
	}
	return transform{
		offX:   g.Left,
		offY:   g.Top,
		chOffX: x.ChOff.X,
		chOffY: x.ChOff.Y,
		sx:     float64(g.Width) / float64(x.ChExt.Cx),
		sy:     float64(g.Height) / float64(x.ChExt.Cy),
	}
}

// shapeContext converts one part's shapes.
type shapeContext struct {
	pkg     *opcPackage
	part    string
	palette *palette
	layout  *layoutInfo
}

func (c *shapeContext) tree(t *xShapeTree, tr transform, groupFill *domain.Fill) []domain.Shape {
	var out []domain.Shape
	for _, n := range t.Nodes {
		var sh domain.Shape
		switch {
		case n.Sp != nil:
			if truthy(n.Sp.Nv.CNvPr.Hidden) {
				continue
			}
			sh = c.sp(n.Sp, tr, groupFill)
		case n.Pic != nil:
			if truthy(n.Pic.Nv.CNvPr.Hidden) {
				continue
			}
			sh = c.base(n.Pic.Nv, domain.ShapePicture)
			sh.Geometry = c.geometry(n.Pic.SpPr.Xfrm, n.Pic.Nv.NvPr.Ph, tr)
		case n.Cxn != nil:
			sh = c.base(n.Cxn.Nv, domain.ShapeConnector)
			sh.Geometry = c.geometry(n.Cxn.SpPr.Xfrm, nil, tr)
		case n.Frame != nil:
			sh = c.base(n.Frame.Nv, frameKind(n.Frame.Graphic.Data.URI))
			sh.Geometry = c.geometry(n.Frame.Xfrm, n.Frame.Nv.NvPr.Ph, tr)
		case n.Group != nil:
			if truthy(n.Group.Nv.CNvPr.Hidden) {
				continue
			}
			sh = c.base(n.Group.Nv, domain.ShapeGroup)
			sh.Geometry = c.geometry(n.Group.SpPr.Xfrm, nil, tr)
			sh.Fill = c.fill(&n.Group.SpPr.xFillProps, nil, groupFill)
			sh.Children = c.tree(n.Group, tr.child(sh.Geometry, n.Group.SpPr.Xfrm), sh.Fill)
		default:
			continue
		}
		out = append(out, sh)
	}
	return out
}

func frameKind(uri string) domain.ShapeKind {
	switch {
	case strings.HasSuffix(uri, "/table"):
		return domain.ShapeTable
	case strings.HasSuffix(uri, "/chart"):
		return domain.ShapeChart
	}
	return domain.ShapeOther
}

func (c *shapeContext) base(nv xNvProps, kind domain.ShapeKind) domain.Shape {
	return domain.Shape{
		ID:          nv.CNvPr.ID,
		Name:        nv.CNvPr.Name,
		Kind:        kind,
		Placeholder: phKind(nv.NvPr.Ph),
		AltText:     strings.TrimSpace(nv.CNvPr.Descr),
		Decorative:  nv.CNvPr.decorative(),
	}
}

func (c *shapeContext) sp(sp *xSp, tr transform, groupFill *domain.Fill) domain.Shape {
	sh := c.base(sp.Nv, domain.ShapeOther)
	sh.Geometry = c.geometry(sp.SpPr.Xfrm, sp.Nv.NvPr.Ph, tr)
	sh.Fill = c.fill(&sp.SpPr.xFillProps, sp.Style, groupFill)
	var textColor *domain.RGB
	if sp.Style != nil && sp.Style.FontRef != nil {
		if col, ok := c.palette.color(&sp.Style.FontRef.xColor); ok {
			textColor = &col
		}
	}
	sh.Text = c.textFrame(sp.Text, textColor)
	return sh
}

// geometry uses the shape's own transform, else the matching layout or
// master placeholder's position.
func (c *shapeContext) geometry(x *xXfrm, ph *xPh, tr transform) domain.Geometry {
	if x != nil && x.Off != nil && x.Ext != nil {
		return tr.apply(domain.Geometry{Left: x.Off.X, Top: x.Off.Y, Width: x.Ext.Cx, Height: x.Ext.Cy})
	}
	if ph != nil && c.layout != nil {
		if g := c.layout.inherited(ph); g != nil {
			return *g
		}
	}
	return domain.Geometry{}
}

func (l *layoutInfo) inherited(ph *xPh) *domain.Geometry {
	typ := normalizePhType(ph.Type)
	if ph.Idx != "" {
		for _, p := range l.placeholders {
			if p.idx == ph.Idx && p.geom != nil {
				return p.geom
			}
		}
	}
	for _, p := range l.placeholders {
		if p.typ == typ && p.geom != nil {
			return p.geom
		}
	}
	if l.master == nil {
		return nil
	}
	mtyp := masterPhType(typ)
	for _, p := range l.master.placeholders {
		if masterPhType(p.typ) == mtyp && p.geom != nil {
			return p.geom
		}
	}
	return nil
}

// fill converts shape fill properties. With no explicit fill the theme
// style's fill reference applies. Pattern fills are reported as textures.
func (c *shapeContext) fill(fp *xFillProps, style *xShapeStyle, groupFill *domain.Fill) *domain.Fill {
	switch {
	case fp.NoFill != nil:
		return &domain.Fill{Kind: domain.FillNone}
	case fp.SolidFill != nil:
		f := &domain.Fill{Kind: domain.FillSolid, Alpha: alpha(fp.SolidFill)}
		if col, ok := c.palette.color(fp.SolidFill); ok {
			f.Color = &col
		}
		return f
	case fp.GradFill != nil:
		return &domain.Fill{Kind: domain.FillGradient}
	case fp.BlipFill != nil:
		return &domain.Fill{Kind: domain.FillPicture}
	case fp.PattFill != nil:
		return &domain.Fill{Kind: domain.FillTexture}
	case fp.GrpFill != nil:
		return groupFill
	}
	if style != nil && style.FillRef != nil && style.FillRef.Idx > 0 {
		if col, ok := c.palette.color(&style.FillRef.xColor); ok {
			return &domain.Fill{Kind: domain.FillSolid, Color: &col, Alpha: alpha(&style.FillRef.xColor)}
		}
	}
	return nil
}

func (c *shapeContext) background(bg *xBackground) *domain.Fill {
	if bg == nil {
		return nil
	}
	if bg.BgPr != nil {
		return c.fill(bg.BgPr, nil, nil)
	}
	if bg.BgRef != nil {
		if col, ok := c.palette.color(&bg.BgRef.xColor); ok {
			return &domain.Fill{Kind: domain.FillSolid, Color: &col}
		}
	}
	return nil
}

func (c *shapeContext) textFrame(body *xTxBody, defaultColor *domain.RGB) *domain.TextFrame {
	if body == nil {
		return nil
	}
	tf := &domain.TextFrame{Paragraphs: make([]domain.Paragraph, 0, len(body.Paragraphs))}
	for _, p := range body.Paragraphs {
		var para domain.Paragraph
		for _, r := range p.Runs {
			para.Runs = append(para.Runs, c.run(r, defaultColor))
		}
		tf.Paragraphs = append(tf.Paragraphs, para)
	}
	return tf
}

func (c *shapeContext) run(r xRun, defaultColor *domain.RGB) domain.Run {
	run := domain.Run{Text: r.Text}
	if p := r.Props; p != nil {
		if sz, err := strconv.ParseFloat(p.Sz, 64); err == nil && sz > 0 {
			run.SizePt = sz / 100
		}
		if p.B != "" {
			b := truthy(p.B)
			run.Bold = &b
		}
		if p.Latin != nil {
			run.Font = p.Latin.Typeface
		}
		if p.SolidFill != nil {
			if col, ok := c.palette.color(p.SolidFill); ok {
				run.Color = &col
			}
		}
		if p.HlinkClk != nil {
			run.Hyperlink = c.hyperlink(p.HlinkClk)
		}
	}
	if run.Color == nil && defaultColor != nil {
		col := *defaultColor
		run.Color = &col
	}
	return run
}

// hyperlink returns an external address, or "#target" for jumps within the deck.
func (c *shapeContext) hyperlink(h *xHyperlink) string {
	if h.RID != "" {
		if rel, ok := c.pkg.relationships(c.part)[h.RID]; ok {
			if rel.TargetMode == targetExternal {
				return rel.Target
			}
			return "#" + path.Base(rel.Target)
		}
	}
	if h.Action != "" {
		if i := strings.LastIndex(h.Action, "jump="); i >= 0 {
			return "#" + h.Action[i+len("jump="):]
		}
		return "#" + h.Action
	}
	return ""
}
