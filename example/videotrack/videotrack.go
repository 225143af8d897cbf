package main

import (
	"flag"
	"fmt"
	"image"
	"log"
	"strconv"
	"strings"
	"time"

	bytetrack "github.com/swdee/go-bytetrack"
	"github.com/swdee/go-bytetrack/preprocess"
	"github.com/swdee/go-bytetrack/render"
	"gocv.io/x/gocv"
)

const (
	// zoneMargin is the hysteresis band width in pixels used for zone
	// entry and exit
	zoneMargin = 10
	// trailLength is the number of past center points drawn per track
	trailLength = 90
)

// Demo defines the struct for running the motion tracking demo
type Demo struct {
	// bt tracks moving objects across video frames
	bt *bytetrack.Tracker
	// trail records track center points for drawing track history
	trail *bytetrack.Trail
	// monitor reports zone entry and exit events
	monitor *bytetrack.ZoneMonitor
	// zones are the monitored regions drawn on the output video
	zones []*bytetrack.Zone
	// bgSub segments moving foreground from the static background
	bgSub gocv.BackgroundSubtractorMOG2
	// fgMask holds the foreground mask of the current frame
	fgMask gocv.Mat
	// kernel used for cleaning up the foreground mask
	kernel gocv.Mat
	// minArea is the smallest contour area accepted as a detection
	minArea float64
	// font used to label track boxes
	font render.Font
	// ttf is the optional TrueType face used for the header text
	ttf *render.TTFFont
	// style used to draw track trails
	style render.TrailStyle
}

// NewDemo returns an instance of Demo used for tracking moving objects in
// a video file
func NewDemo(zoneSpec, fontFile string, minArea float64) (*Demo, error) {

	d := &Demo{
		bt:      bytetrack.NewTracker(bytetrack.DefaultConfig()),
		trail:   bytetrack.NewTrail(trailLength),
		bgSub:   gocv.NewBackgroundSubtractorMOG2(),
		fgMask:  gocv.NewMat(),
		kernel:  gocv.GetStructuringElement(gocv.MorphRect, image.Pt(5, 5)),
		minArea: minArea,
		font:    render.DefaultFont(),
		style:   render.DefaultTrailStyle(),
	}

	// histogram features give the tracker an appearance cue on top of IoU
	d.bt.SetExtractor(bytetrack.NewHistogramExtractor())

	if fontFile != "" {
		ttf, err := render.LoadTTFFont(fontFile, 14)

		if err != nil {
			return nil, fmt.Errorf("error loading font: %w", err)
		}

		d.ttf = ttf
	}

	if zoneSpec != "" {
		zone, err := parseZone(zoneSpec)

		if err != nil {
			return nil, fmt.Errorf("error parsing zone: %w", err)
		}

		d.zones = append(d.zones, zone)
		d.monitor = bytetrack.NewZoneMonitor(zone)
	}

	return d, nil
}

// Close frees memory allocated by the demo
func (d *Demo) Close() {
	d.bgSub.Close()
	d.fgMask.Close()
	d.kernel.Close()

	if d.ttf != nil {
		d.ttf.Close()
	}
}

// parseZone converts a polygon given as "x,y;x,y;..." into a monitored
// zone
func parseZone(spec string) (*bytetrack.Zone, error) {

	parts := strings.Split(spec, ";")
	points := make([]image.Point, 0, len(parts))

	for _, part := range parts {

		coords := strings.Split(strings.TrimSpace(part), ",")

		if len(coords) != 2 {
			return nil, fmt.Errorf("invalid zone point %q", part)
		}

		x, err := strconv.Atoi(strings.TrimSpace(coords[0]))

		if err != nil {
			return nil, fmt.Errorf("invalid zone point %q: %w", part, err)
		}

		y, err := strconv.Atoi(strings.TrimSpace(coords[1]))

		if err != nil {
			return nil, fmt.Errorf("invalid zone point %q: %w", part, err)
		}

		points = append(points, image.Pt(x, y))
	}

	return bytetrack.NewZone("zone", points, zoneMargin)
}

// DetectMotion segments the foreground of the frame and turns each moving
// region into a detection.  The confidence score is the fill ratio of the
// contour area over its bounding box, a solid compact mover scores high
// while ragged noise scores low and lands in the rescue bucket
func (d *Demo) DetectMotion(img gocv.Mat) []bytetrack.Object {

	d.bgSub.Apply(img, &d.fgMask)

	// drop shadow pixels which MOG2 marks with an intermediate gray value
	gocv.Threshold(d.fgMask, &d.fgMask, 200, 255, gocv.ThresholdBinary)

	// close small holes in the mask
	gocv.MorphologyEx(d.fgMask, &d.fgMask, gocv.MorphClose, d.kernel)

	contours := gocv.FindContours(d.fgMask, gocv.RetrievalExternal,
		gocv.ChainApproxSimple)
	defer contours.Close()

	objects := make([]bytetrack.Object, 0)

	for i := 0; i < contours.Size(); i++ {

		contour := contours.At(i)
		area := gocv.ContourArea(contour)

		if area < d.minArea {
			continue
		}

		box := gocv.BoundingRect(contour)
		fill := area / float64(box.Dx()*box.Dy())

		objects = append(objects, bytetrack.NewObject(
			bytetrack.NewRect(float32(box.Min.X), float32(box.Min.Y),
				float32(box.Dx()), float32(box.Dy())),
			0, float32(fill)))
	}

	return objects
}

// ProcessFrame detects moving objects in the frame, feeds them through the
// tracker, and writes the annotated frame to the output video
func (d *Demo) ProcessFrame(img *gocv.Mat, writer *gocv.VideoWriter,
	fps float64) error {

	objects := d.DetectMotion(*img)

	frame, err := preprocess.MatToRaster(*img)

	if err != nil {
		return fmt.Errorf("error converting frame: %w", err)
	}

	tracks, err := d.bt.UpdateWithFrame(frame, objects)

	if err != nil {
		return fmt.Errorf("error updating tracker: %w", err)
	}

	// record trail points
	for _, track := range tracks {
		d.trail.Add(track)
	}

	// report zone entry and exit events
	if d.monitor != nil {
		for _, ev := range d.monitor.Observe(d.bt.FrameID(), tracks) {
			log.Printf("Frame %d: track %d %s zone %q", ev.FrameID,
				ev.TrackID, ev.Type, ev.Zone)
		}
	}

	// drop state held for tracks removed this frame
	for _, removed := range d.bt.RemovedTracks() {
		d.trail.Forget(removed.GetTrackID())

		if d.monitor != nil {
			d.monitor.Forget(removed.GetTrackID())
		}
	}

	d.AnnotateFrame(img, tracks, fps)

	return writer.Write(*img)
}

// AnnotateFrame draws the zone outlines, track boxes, and trails on the
// frame
func (d *Demo) AnnotateFrame(img *gocv.Mat, tracks []*bytetrack.Track,
	fps float64) {

	// draw zone outlines
	for _, zone := range d.zones {
		pts := gocv.NewPointsVectorFromPoints([][]image.Point{zone.GetPoints()})
		gocv.Polylines(img, pts, true, render.Yellow, 2)
		pts.Close()
	}

	render.TrackBoxes(img, tracks, d.font, 2)
	render.Trail(img, tracks, d.trail, d.style)

	moving := 0

	for _, track := range tracks {
		if !track.IsStationary() {
			moving++
		}
	}

	// add FPS and track counts to top of image
	header := fmt.Sprintf("FPS: %.1f, Tracks: %d, Moving: %d", fps,
		len(tracks), moving)

	if d.ttf != nil {
		err := render.TTFLabel(img, d.ttf, header, 4, 16, render.White)

		if err != nil {
			log.Printf("Error rendering header: %v", err)
		}

		return
	}

	gocv.PutText(img, header, image.Pt(4, 14), gocv.FontHersheyDuplex, 0.5,
		render.White, 1)
}

// Run reads the video frame by frame and writes the annotated result to
// the output file
func (d *Demo) Run(vidFile, outFile string) error {

	video, err := gocv.VideoCaptureFile(vidFile)

	if err != nil {
		return fmt.Errorf("error opening video file %s: %w", vidFile, err)
	}

	defer video.Close()

	width := int(video.Get(gocv.VideoCaptureFrameWidth))
	height := int(video.Get(gocv.VideoCaptureFrameHeight))
	fps := video.Get(gocv.VideoCaptureFPS)

	if fps <= 0 {
		fps = 25
	}

	writer, err := gocv.VideoWriterFile(outFile, "MJPG", fps, width, height,
		true)

	if err != nil {
		return fmt.Errorf("error opening video writer %s: %w", outFile, err)
	}

	defer writer.Close()

	img := gocv.NewMat()
	defer img.Close()

	// used for calculating FPS
	frames := 0
	frameCount := 0
	procFPS := float64(0)
	start := time.Now()
	fpsStart := start

	for {
		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			// reached last video frame
			break
		}

		// Check if the frame is empty
		if img.Empty() {
			continue
		}

		err = d.ProcessFrame(&img, writer, procFPS)

		if err != nil {
			return err
		}

		frames++
		frameCount++

		// calculate FPS
		if elapsed := time.Since(fpsStart).Seconds(); elapsed >= 1.0 {
			procFPS = float64(frameCount) / elapsed
			frameCount = 0
			fpsStart = time.Now()
		}
	}

	elapsed := time.Since(start).Seconds()

	log.Printf("Processed %d frames in %.1fs (%.1f FPS)", frames, elapsed,
		float64(frames)/elapsed)

	return nil
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	vidFile := flag.String("i", "", "Video file to track moving objects in")
	outFile := flag.String("o", "./tracked.avi", "Output video file")
	zoneSpec := flag.String("zone", "",
		"Zone polygon to monitor, format \"x,y;x,y;x,y;...\"")
	fontFile := flag.String("font", "",
		"TTF font file for the header text, Hershey font when omitted")
	minArea := flag.Float64("area", 400,
		"Minimum contour area in pixels accepted as a detection")

	flag.Parse()

	if *vidFile == "" {
		log.Fatal("Provide a video file with -i")
	}

	demo, err := NewDemo(*zoneSpec, *fontFile, *minArea)

	if err != nil {
		log.Fatalf("Error creating demo: %v", err)
	}

	defer demo.Close()

	err = demo.Run(*vidFile, *outFile)

	if err != nil {
		log.Fatalf("Error processing video: %v", err)
	}
}
