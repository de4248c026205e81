// Package export writes stored runs in formats other tools can read.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/pathloop/internal/command"
	"github.com/san-kum/pathloop/internal/geom"
	"github.com/san-kum/pathloop/internal/path"
)

const (
	pathColor  = "#00ccff"
	trailColor = "#00ff88"
	goalColor  = "#ff4444"
)

// SVG draws the planned path and the driven trajectory on one field, +Y up.
func SVG(w io.Writer, p path.Path, samples []command.Sample, width, height int) error {
	pts := make([]geom.Translation, 0, p.Len()+len(samples))
	for _, wp := range p.Waypoints() {
		pts = append(pts, wp.Translation())
	}
	for _, s := range samples {
		pts = append(pts, s.Pose.Translation)
	}
	project := fit(pts, float64(width), float64(height))

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	wps := make([]geom.Translation, p.Len())
	for i, wp := range p.Waypoints() {
		wps[i] = wp.Translation()
	}
	polyline(&sb, wps, project, pathColor, "4,3")
	for _, wp := range wps {
		x, y := project(wp)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, pathColor)
	}

	trail := make([]geom.Translation, len(samples))
	for i, s := range samples {
		trail[i] = s.Pose.Translation
	}
	polyline(&sb, trail, project, trailColor, "")

	if n := len(samples); n > 0 {
		x, y := project(samples[n-1].Pose.Translation)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="5" fill="%s"/>`+"\n", x, y, goalColor)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func polyline(sb *strings.Builder, pts []geom.Translation, project func(geom.Translation) (float64, float64), color, dash string) {
	if len(pts) < 2 {
		return
	}
	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5"`, color)
	if dash != "" {
		fmt.Fprintf(sb, ` stroke-dasharray="%s"`, dash)
	}
	sb.WriteString(` d="M`)
	for i, pt := range pts {
		x, y := project(pt)
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", x, y)
		}
	}
	sb.WriteString("\"/>\n")
}

// fit maps field points into a width by height image with 10% padding and a
// uniform scale.
func fit(pts []geom.Translation, width, height float64) func(geom.Translation) (float64, float64) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	if len(pts) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}
	rangeX := math.Max(maxX-minX, 1)
	rangeY := math.Max(maxY-minY, 1)
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	scale := math.Min(width/rangeX, height/rangeY)
	offX := (width - rangeX*scale) / 2
	offY := (height - rangeY*scale) / 2
	return func(p geom.Translation) (float64, float64) {
		return offX + (p.X-minX)*scale, height - offY - (p.Y-minY)*scale
	}
}
