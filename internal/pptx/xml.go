package pptx

import (
	"encoding/xml"
	"strings"
)

// Element and attribute tags match on local names unless a namespace is
// given, so the structs below decode PresentationML and DrawingML
// regardless of prefix.

type xRelationships struct {
	Rels []xRel `xml:"Relationship"`
}

type xRel struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type xPresentation struct {
	MasterIDs []xRelID `xml:"sldMasterIdLst>sldMasterId"`
	SlideIDs  []xRelID `xml:"sldIdLst>sldId"`
	SlideSize struct {
		Cx int64 `xml:"cx,attr"`
		Cy int64 `xml:"cy,attr"`
	} `xml:"sldSz"`
}

// xRelID reads r:id; the unprefixed id attribute on the same element is ignored.
type xRelID struct {
	RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
}

type xVal struct {
	Val string `xml:"val,attr"`
}

type xColorSpec struct {
	Val     string `xml:"val,attr"`
	LastClr string `xml:"lastClr,attr"`
	LumMod  *xVal  `xml:"lumMod"`
	LumOff  *xVal  `xml:"lumOff"`
	Tint    *xVal  `xml:"tint"`
	Shade   *xVal  `xml:"shade"`
	Alpha   *xVal  `xml:"alpha"`
}

// xColor is any DrawingML color choice (srgbClr, schemeClr, sysClr, prstClr).
type xColor struct {
	Srgb   *xColorSpec `xml:"srgbClr"`
	Scheme *xColorSpec `xml:"schemeClr"`
	Sys    *xColorSpec `xml:"sysClr"`
	Prst   *xColorSpec `xml:"prstClr"`
}

func (c *xColor) empty() bool {
	return c == nil || (c.Srgb == nil && c.Scheme == nil && c.Sys == nil && c.Prst == nil)
}

type xPoint struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type xSize struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

type xXfrm struct {
	Off   *xPoint `xml:"off"`
	Ext   *xSize  `xml:"ext"`
	ChOff *xPoint `xml:"chOff"`
	ChExt *xSize  `xml:"chExt"`
}

type xEmpty struct{}

type xFillProps struct {
	NoFill    *xEmpty `xml:"noFill"`
	SolidFill *xColor `xml:"solidFill"`
	GradFill  *xEmpty `xml:"gradFill"`
	BlipFill  *xEmpty `xml:"blipFill"`
	PattFill  *xEmpty `xml:"pattFill"`
	GrpFill   *xEmpty `xml:"grpFill"`
}

type xSpPr struct {
	Xfrm *xXfrm `xml:"xfrm"`
	xFillProps
}

type xStyleRef struct {
	Idx int `xml:"idx,attr"`
	xColor
}

type xShapeStyle struct {
	FillRef *xStyleRef `xml:"fillRef"`
	FontRef *xStyleRef `xml:"fontRef"`
}

type xExt struct {
	URI        string `xml:"uri,attr"`
	Decorative *xVal  `xml:"decorative"`
}

type xCNvPr struct {
	ID     int    `xml:"id,attr"`
	Name   string `xml:"name,attr"`
	Descr  string `xml:"descr,attr"`
	Hidden string `xml:"hidden,attr"`
	Exts   []xExt `xml:"extLst>ext"`
}

func (c xCNvPr) decorative() bool {
	for _, e := range c.Exts {
		if e.Decorative != nil && truthy(e.Decorative.Val) {
			return true
		}
	}
	return false
}

type xPh struct {
	Type string `xml:"type,attr"`
	Idx  string `xml:"idx,attr"`
}

type xNvProps struct {
	CNvPr xCNvPr `xml:"cNvPr"`
	NvPr  struct {
		Ph *xPh `xml:"ph"`
	} `xml:"nvPr"`
}

type xHyperlink struct {
	RID    string `xml:"id,attr"`
	Action string `xml:"action,attr"`
}

type xFont struct {
	Typeface string `xml:"typeface,attr"`
}

type xRunProps struct {
	Sz        string      `xml:"sz,attr"`
	B         string      `xml:"b,attr"`
	Latin     *xFont      `xml:"latin"`
	SolidFill *xColor     `xml:"solidFill"`
	HlinkClk  *xHyperlink `xml:"hlinkClick"`
}

type xRun struct {
	Props *xRunProps `xml:"rPr"`
	Text  string     `xml:"t"`
}

// xParagraph keeps runs, fields and line breaks in document order.
type xParagraph struct {
	Runs []xRun
}

func (p *xParagraph) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "r", "fld":
				var r xRun
				if err := d.DecodeElement(&r, &el); err != nil {
					return err
				}
				p.Runs = append(p.Runs, r)
			case "br":
				p.Runs = append(p.Runs, xRun{Text: "\n"})
				if err := d.Skip(); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

type xTxBody struct {
	Paragraphs []xParagraph `xml:"p"`
}

type xSp struct {
	Nv    xNvProps     `xml:"nvSpPr"`
	SpPr  xSpPr        `xml:"spPr"`
	Style *xShapeStyle `xml:"style"`
	Text  *xTxBody     `xml:"txBody"`
}

type xPic struct {
	Nv   xNvProps `xml:"nvPicPr"`
	SpPr xSpPr    `xml:"spPr"`
}

type xCxn struct {
	Nv   xNvProps `xml:"nvCxnSpPr"`
	SpPr xSpPr    `xml:"spPr"`
}

type xGraphicFrame struct {
	Nv      xNvProps `xml:"nvGraphicFramePr"`
	Xfrm    *xXfrm   `xml:"xfrm"`
	Graphic struct {
		Data struct {
			URI string `xml:"uri,attr"`
		} `xml:"graphicData"`
	} `xml:"graphic"`
}

// xNode is one child of a shape tree; exactly one field is set.
type xNode struct {
	Sp    *xSp
	Pic   *xPic
	Cxn   *xCxn
	Frame *xGraphicFrame
	Group *xShapeTree
}

// xShapeTree decodes p:spTree and p:grpSp, preserving child z-order.
type xShapeTree struct {
	Nv    xNvProps
	SpPr  xSpPr
	Nodes []xNode
}

func (t *xShapeTree) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			var err error
			switch el.Name.Local {
			case "nvGrpSpPr":
				err = d.DecodeElement(&t.Nv, &el)
			case "grpSpPr":
				err = d.DecodeElement(&t.SpPr, &el)
			case "sp":
				n := &xSp{}
				err = d.DecodeElement(n, &el)
				t.Nodes = append(t.Nodes, xNode{Sp: n})
			case "pic":
				n := &xPic{}
				err = d.DecodeElement(n, &el)
				t.Nodes = append(t.Nodes, xNode{Pic: n})
			case "cxnSp":
				n := &xCxn{}
				err = d.DecodeElement(n, &el)
				t.Nodes = append(t.Nodes, xNode{Cxn: n})
			case "graphicFrame":
				n := &xGraphicFrame{}
				err = d.DecodeElement(n, &el)
				t.Nodes = append(t.Nodes, xNode{Frame: n})
			case "grpSp":
				n := &xShapeTree{}
				err = d.DecodeElement(n, &el)
				t.Nodes = append(t.Nodes, xNode{Group: n})
			case "AlternateContent":
				err = t.decodeAlternate(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

// decodeAlternate takes the Fallback branch of mc:AlternateContent, which
// carries plain DrawingML shapes.
func (t *xShapeTree) decodeAlternate(d *xml.Decoder) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "Fallback" {
				var inner xShapeTree
				if err := inner.UnmarshalXML(d, el); err != nil {
					return err
				}
				t.Nodes = append(t.Nodes, inner.Nodes...)
				continue
			}
			if err := d.Skip(); err != nil {
				return err
			}
		case xml.EndElement:
			return nil
		}
	}
}

type xBackground struct {
	BgPr  *xFillProps `xml:"bgPr"`
	BgRef *xStyleRef  `xml:"bgRef"`
}

type xCommonSlide struct {
	Name string       `xml:"name,attr"`
	Bg   *xBackground `xml:"bg"`
	Tree xShapeTree   `xml:"spTree"`
}

// xSlidePart covers p:sld, p:sldLayout, p:sldMaster and p:notes.
type xSlidePart struct {
	CSld   xCommonSlide `xml:"cSld"`
	ClrMap *xClrMap     `xml:"clrMap"`
}

type xClrMap struct {
	Bg1 string `xml:"bg1,attr"`
	Tx1 string `xml:"tx1,attr"`
	Bg2 string `xml:"bg2,attr"`
	Tx2 string `xml:"tx2,attr"`
}

type xThemeColor struct {
	XMLName xml.Name
	xColor
}

type xTheme struct {
	Colors struct {
		Items []xThemeColor `xml:",any"`
	} `xml:"themeElements>clrScheme"`
	Fonts struct {
		Major xFont `xml:"majorFont>latin"`
		Minor xFont `xml:"minorFont>latin"`
	} `xml:"themeElements>fontScheme"`
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on":
		return true
	}
	return false
}
