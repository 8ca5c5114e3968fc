// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service runs the navigation. It collects camera poses, landmark resolutions and
// geo fixes from the configured providers, follows the selected route and renders the
// directions to stdout, MQTT, websocket clients and desktop notifications.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-co-op/gocron/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/vorlif/spreak"
	"golang.org/x/sync/errgroup"

	"github.com/wneessen/stepnav/internal/alignment"
	"github.com/wneessen/stepnav/internal/announce"
	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/config"
	"github.com/wneessen/stepnav/internal/contrast"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/geometry"
	"github.com/wneessen/stepnav/internal/job"
	"github.com/wneessen/stepnav/internal/logger"
	"github.com/wneessen/stepnav/internal/mapgraph"
	"github.com/wneessen/stepnav/internal/navigation"
	"github.com/wneessen/stepnav/internal/pathlog"
	"github.com/wneessen/stepnav/internal/pose"
	"github.com/wneessen/stepnav/internal/presenter"
	"github.com/wneessen/stepnav/internal/web"
)

const (
	OutputClass = "stepnav"
	PositionKey = "position"

	subscriberBuffer = 64
	idleCueInterval  = time.Second
	saveTimeout      = 10 * time.Second
)

// Service follows a route with the live camera pose and publishes the directions.
type Service struct {
	config    *config.Config
	logger    *logger.Logger
	localizer *spreak.Localizer
	presenter *presenter.Presenter
	scheduler gocron.Scheduler
	output    io.Writer

	poseBus *bus.Bus[pose.Sample]
	geoBus  *bus.Bus[geofix.Coordinate]

	navigator *navigation.Navigator
	aligner   *alignment.Aligner
	pathLog   *pathlog.Log
	store     pathlog.Store
	hub       *web.Hub
	announcer announce.Announcer
	publisher paho.Client
	SignalSrc signalSource

	// jobs are started next to the scheduler and live as long as the service
	jobs []*job.Job

	stateLock   sync.RWMutex
	graph       *mapgraph.Graph
	tracker     *navigation.Tracker
	routeName   string
	destination string
	camera      *pose.Sample
	status      presenter.Status

	displayAltLock sync.RWMutex
	displayAltText bool
}

// New creates a Service. The map is loaded and the route is planned when the service runs.
func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf, t)
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	scheme, err := contrast.Scheme(conf.Display.Scheme, conf.Display.Foreground, conf.Display.Background)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve display colours: %w", err)
	}
	if ratio, _ := scheme.Ratio(); contrast.LevelFor(ratio) == contrast.LevelFail && log != nil {
		log.Warn("display colours have insufficient contrast", slog.Float64("ratio", ratio))
	}

	nav := navigation.NewNavigator()
	nav.ArrivalRadius = conf.Navigation.ArrivalRadius
	nav.CloseRadius = conf.Navigation.CloseRadius
	if conf.Navigation.HeadingOffset != 0 {
		nav.HeadingOffset.Set(conf.Navigation.HeadingOffset * math.Pi / 180)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		localizer: t,
		presenter: pres,
		scheduler: scheduler,
		output:    os.Stdout,
		poseBus:   bus.New(log, bus.Latest[pose.Sample]()),
		geoBus:    bus.New(log, bus.Significant(geofix.Coordinate.PosHasSignificantChange)),
		navigator: nav,
		aligner:   alignment.New(),
		pathLog:   pathlog.New(),
		hub:       web.NewHub(log, scheme),
		announcer: announce.Log{Logger: log},
		SignalSrc: stdLibSignalSource{},
	}
	service.jobs = append(service.jobs, job.NewAdaptive(service.cueInterval, service.cue))
	return service, nil
}

// Run loads the map, starts all providers and outputs and blocks until ctx is cancelled or
// one of the components fails. A pending path log is saved before Run returns.
func (s *Service) Run(ctx context.Context) error {
	if err := s.config.RequirePoseSource(); err != nil {
		return err
	}

	graph, err := s.loadMap(ctx)
	if err != nil {
		return fmt.Errorf("failed to load map: %w", err)
	}
	s.stateLock.Lock()
	s.graph = graph
	s.stateLock.Unlock()
	s.logger.Info("map loaded", slog.String("name", graph.Name()), slog.Int("anchors", len(graph.Anchors())),
		slog.Int("edges", graph.EdgeCount()))

	if s.config.Navigation.Start != "" && s.config.Navigation.Destination != "" {
		if err = s.SelectRoute(s.config.Navigation.Start, s.config.Navigation.Destination); err != nil {
			return fmt.Errorf("failed to plan route: %w", err)
		}
	}

	if err = s.setupOutputs(ctx); err != nil {
		return err
	}
	defer s.closeOutputs()

	// Start scheduled jobs
	if err = s.createScheduledJob(ctx, s.config.Intervals.FollowCrumb, s.followCrumb, "follow_crumb"); err != nil {
		return err
	}
	if err = s.createScheduledJob(ctx, s.config.Intervals.Output, s.printState, "output"); err != nil {
		return err
	}

	group, gctx := errgroup.WithContext(ctx)

	poseOrchestrator := s.poseBus.NewOrchestrator(s.selectPoseProviders())
	poseSub, poseUnsub := s.poseBus.SubscribeAll(subscriberBuffer)
	group.Go(func() error {
		poseOrchestrator.Track(gctx, pose.CameraKey)
		return nil
	})
	group.Go(func() error {
		s.processPoseUpdates(gctx, poseSub)
		return nil
	})

	if geoProviders := s.selectGeoProviders(); len(geoProviders) > 0 {
		geoOrchestrator := s.geoBus.NewOrchestrator(geoProviders)
		geoSub, geoUnsub := s.geoBus.Subscribe(PositionKey, subscriberBuffer)
		defer geoUnsub()
		group.Go(func() error {
			geoOrchestrator.Track(gctx, PositionKey)
			return nil
		})
		group.Go(func() error {
			s.processGeoUpdates(gctx, geoSub)
			return nil
		})
	}

	for _, j := range s.jobs {
		if j == nil {
			continue
		}
		group.Go(func() error {
			j.Start(gctx)
			return nil
		})
	}

	if s.config.Output.WebAddr != "" {
		group.Go(func() error {
			return s.hub.ListenAndServe(gctx, s.config.Output.WebAddr)
		})
	}

	group.Go(func() error {
		s.monitorSleepResume(gctx)
		return nil
	})

	sigChan := make(chan os.Signal, 1)
	s.SignalSrc.Notify(sigChan, altTextSignal, stateSignal)
	group.Go(func() error {
		defer s.SignalSrc.Stop(sigChan)
		s.HandleSignals(gctx, sigChan)
		return nil
	})

	s.scheduler.Start()
	err = group.Wait()
	poseUnsub()

	if logErr := s.savePathLog(); logErr != nil {
		s.logger.Error("failed to save path log", logger.Err(logErr))
	}
	if shutdownErr := s.scheduler.Shutdown(); shutdownErr != nil {
		err = errors.Join(err, fmt.Errorf("failed to shut down scheduler: %w", shutdownErr))
	}
	return err
}

// SelectRoute plans the route between two anchors of the map and starts following it.
func (s *Service) SelectRoute(from, to string) error {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	if s.graph == nil {
		return errors.New("no map loaded")
	}

	comp, err := s.graph.PlanRoute(from, to)
	if err != nil {
		return err
	}
	r := comp.Route(s.config.Navigation.PathWidth)

	s.aligner.SetLandmarks(comp.Landmarks)
	s.tracker = navigation.NewTracker(s.navigator, r, s.aligner)
	s.routeName = comp.Name
	s.destination = to
	if anchor, ok := s.graph.Anchor(to); ok && anchor.Name != "" {
		s.destination = anchor.Name
	}
	reachable, err := s.graph.Reachable(from)
	if err != nil {
		return err
	}
	s.status = presenter.Status{
		Position:  s.status.Position,
		Nearby:    s.status.Nearby,
		Heading:   s.status.Heading,
		Reachable: reachable,
	}

	if s.config.PathLog.Enabled {
		s.pathLog.Start(comp.Name)
		s.pathLog.SetLandmarks(comp.Landmarks)
	}
	s.logger.Info("route selected", slog.String("route", comp.Name), slog.Int("keypoints", r.Len()),
		slog.Int("landmarks", len(comp.Landmarks)))
	return nil
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", jobName, err)
	}
	return nil
}

// followCrumb advances the route with the latest camera pose.
func (s *Service) followCrumb(ctx context.Context) {
	s.stateLock.Lock()
	if s.camera == nil {
		s.stateLock.Unlock()
		return
	}
	camera := *s.camera
	tracker := s.tracker
	if tracker == nil {
		s.status.Err, s.status.HasEvent = navigation.ErrNoRoute, false
		s.stateLock.Unlock()
		return
	}
	s.stateLock.Unlock()

	s.aligner.Adjust(camera.Pose)
	event, err := tracker.Update(camera.Pose)
	_, total := tracker.Progress()

	s.stateLock.Lock()
	s.status.Route, s.status.Destination, s.status.Total = s.routeName, s.destination, total
	s.status.Err = err
	if err == nil {
		s.status.Event, s.status.HasEvent = event, true
	} else if !errors.Is(err, navigation.ErrRouteComplete) {
		s.status.HasEvent = false
	}
	destination := s.destination
	s.stateLock.Unlock()

	if err != nil {
		return
	}
	switch event.Kind {
	case navigation.EventKeypointReached:
		s.announce(ctx, announce.Announcement{
			Summary: s.localizer.Get("Keypoint reached"),
			Body:    s.presenter.Describe(event),
			Urgency: announce.UrgencyNormal,
		})
		s.printState(ctx)
	case navigation.EventArrived:
		s.announce(ctx, announce.Announcement{
			Summary: s.localizer.Get("You have arrived"),
			Body:    destination,
			Urgency: announce.UrgencyCritical,
		})
		s.printState(ctx)
		if err = s.savePathLog(); err != nil {
			s.logger.Error("failed to save path log", logger.Err(err))
		}
	}
}

// processPoseUpdates applies camera poses and landmark resolutions from the pose bus.
func (s *Service) processPoseUpdates(ctx context.Context, sub <-chan bus.Result[pose.Sample]) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-sub:
			if !ok {
				return
			}
			s.applyPose(r)
		}
	}
}

func (s *Service) applyPose(r bus.Result[pose.Sample]) {
	if r.Key == pose.CameraKey {
		sample := r.Value
		s.stateLock.Lock()
		s.camera = &sample
		s.status.Heading.Set(mgl64.RadToDeg(geometry.HeadingYaw(sample.Pose)))
		s.stateLock.Unlock()
		s.pathLog.AddPose(sample.Pose, sample.Timestamp)
		return
	}

	id, ok := pose.LandmarkID(r.Key)
	if !ok {
		s.logger.Debug("ignoring pose sample with unknown key", slog.String("key", r.Key),
			slog.String("source", r.Source))
		return
	}
	known := s.aligner.Resolve(alignment.Resolution{ID: id, Pose: r.Value.Pose, At: r.At})
	s.logger.Debug("landmark resolved", slog.String("landmark", id), slog.Bool("on_route", known),
		slog.String("source", r.Source))
	if !known {
		return
	}
	s.pathLog.AddResolution(pathlog.Resolution{
		LandmarkID: id,
		SessionID:  r.Value.SessionID,
		Pose:       r.Value.Pose,
		MapPose:    s.aligner.Landmarks()[id],
		Timestamp:  r.Value.Timestamp,
	})
}

// processGeoUpdates keeps the list of nearby destinations current. Without a configured start
// anchor, the closest anchor becomes the start of the route.
func (s *Service) processGeoUpdates(ctx context.Context, sub <-chan bus.Result[geofix.Coordinate]) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-sub:
			if !ok {
				return
			}
			s.logger.Debug("received geolocation update", slog.Float64("lat", r.Value.Lat),
				slog.Float64("lon", r.Value.Lon), slog.String("source", r.Source))
			s.applyPosition(r.Value)
		}
	}
}

func (s *Service) applyPosition(coord geofix.Coordinate) {
	s.stateLock.Lock()
	if s.graph == nil {
		s.stateLock.Unlock()
		return
	}
	nearby := s.graph.Nearby(coord, s.config.Navigation.NearbyRadius)
	s.status.Position = &coord
	s.status.Nearby = nearby
	needsRoute := s.tracker == nil && s.config.Navigation.Destination != "" && len(nearby) > 0
	s.stateLock.Unlock()

	if !needsRoute {
		return
	}
	if err := s.SelectRoute(nearby[0].Anchor.ID, s.config.Navigation.Destination); err != nil {
		s.logger.Error("failed to plan route from nearest anchor", logger.Err(err),
			slog.String("anchor", nearby[0].Anchor.ID))
	}
}

// cueInterval is the delay until the next on-course cue.
func (s *Service) cueInterval() time.Duration {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	if !s.status.HasEvent || s.status.Event.Feedback.Delay <= 0 {
		return idleCueInterval
	}
	return s.status.Event.Feedback.Delay
}

// cue sends an on-course cue while the user is heading towards the next keypoint.
func (s *Service) cue(ctx context.Context) {
	s.stateLock.RLock()
	status := s.status
	s.stateLock.RUnlock()
	if !status.HasEvent || status.Err != nil || !status.Event.Feedback.FacingTarget {
		return
	}
	s.publish(ctx, message{Type: messageCue, Cue: &status.Event.Feedback})
}

func (s *Service) savePathLog() error {
	if s.store == nil || !s.pathLog.IsLogging() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	err := s.pathLog.Save(ctx, s.store)
	if errors.Is(err, pathlog.ErrAlreadySaved) {
		return nil
	}
	return err
}

// Status returns a copy of the current navigation status.
func (s *Service) Status() presenter.Status {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.status
}
