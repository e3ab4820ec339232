package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/pzse-platform/iebc-backend/internal/auth"
	"github.com/pzse-platform/iebc-backend/internal/billing"
	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/letters"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

// storeState is the whole in-memory dataset. InTx snapshots it so a
// returned error restores the pre-transaction state, mirroring the
// all-or-nothing behavior of the real store.
type storeState struct {
	projects        map[int64]*domain.Project
	docTypes        map[int64]*domain.DocumentType
	documents       map[int64]*domain.Document
	comments        map[int64]*domain.Comment
	commentDocs     map[int64][]int64
	shipping        map[int64]*domain.ShippingProfile
	projectShipping map[int64]int64
	tracking        map[int64]string
	overrides       map[int64]*domain.AhjOverride
	buildingDescs   map[int64]*domain.BuildingDescription
	terrains        map[int64]*domain.SurroundingTerrain
	roofLoads       map[int64]*domain.ExistingRoofLoad
	balance         int64
	nextID          int64
}

func (st *storeState) clone() *storeState {
	out := &storeState{
		projects:        map[int64]*domain.Project{},
		docTypes:        st.docTypes,
		documents:       map[int64]*domain.Document{},
		comments:        map[int64]*domain.Comment{},
		commentDocs:     map[int64][]int64{},
		shipping:        map[int64]*domain.ShippingProfile{},
		projectShipping: map[int64]int64{},
		tracking:        map[int64]string{},
		overrides:       st.overrides,
		buildingDescs:   st.buildingDescs,
		terrains:        st.terrains,
		roofLoads:       st.roofLoads,
		balance:         st.balance,
		nextID:          st.nextID,
	}
	for id, p := range st.projects {
		cp := *p
		if p.Meta != nil {
			m := *p.Meta
			cp.Meta = &m
		}
		out.projects[id] = &cp
	}
	for id, d := range st.documents {
		cp := *d
		out.documents[id] = &cp
	}
	for id, c := range st.comments {
		cp := *c
		out.comments[id] = &cp
	}
	for id, docs := range st.commentDocs {
		out.commentDocs[id] = append([]int64(nil), docs...)
	}
	for id, sp := range st.shipping {
		cp := *sp
		out.shipping[id] = &cp
	}
	for k, v := range st.projectShipping {
		out.projectShipping[k] = v
	}
	for k, v := range st.tracking {
		out.tracking[k] = v
	}
	return out
}

type fakeStore struct {
	state *storeState
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: &storeState{
		projects:        map[int64]*domain.Project{},
		docTypes:        map[int64]*domain.DocumentType{},
		documents:       map[int64]*domain.Document{},
		comments:        map[int64]*domain.Comment{},
		commentDocs:     map[int64][]int64{},
		shipping:        map[int64]*domain.ShippingProfile{},
		projectShipping: map[int64]int64{},
		tracking:        map[int64]string{},
		overrides:       map[int64]*domain.AhjOverride{},
		buildingDescs:   map[int64]*domain.BuildingDescription{},
		terrains:        map[int64]*domain.SurroundingTerrain{},
		roofLoads:       map[int64]*domain.ExistingRoofLoad{},
		balance:         1_000_00,
		nextID:          100,
	}}
}

func (s *fakeStore) id() int64 {
	s.state.nextID++
	return s.state.nextID
}

func (s *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshot := s.state.clone()
	if err := fn(ctx); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *fakeStore) CreateProject(ctx context.Context, p *domain.Project, meta *domain.ProjectMeta) error {
	p.ID = s.id()
	meta.ProjectID = p.ID
	p.Meta = meta
	s.state.projects[p.ID] = p
	return nil
}

func (s *fakeStore) ProjectByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, ok := s.state.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

func (s *fakeStore) ProjectWithMeta(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := s.ProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Meta != nil {
		if bd, ok := s.state.buildingDescs[p.Meta.BuildingDescriptionID]; ok {
			p.Meta.BuildingDescription = bd
		}
		if st, ok := s.state.terrains[p.Meta.SurroundingTerrainID]; ok {
			p.Meta.SurroundingTerrain = st
		}
		if rf, ok := s.state.roofLoads[p.Meta.ExistingRoofTypeID]; ok {
			p.Meta.RoofType = rf
		}
	}
	return p, nil
}

func (s *fakeStore) UpdateProject(ctx context.Context, p *domain.Project) error {
	if _, ok := s.state.projects[p.ID]; !ok {
		return domain.ErrProjectNotFound
	}
	s.state.projects[p.ID] = p
	return nil
}

func (s *fakeStore) UpdateMeta(ctx context.Context, meta *domain.ProjectMeta) error {
	p, ok := s.state.projects[meta.ProjectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Meta = meta
	return nil
}

func (s *fakeStore) SetStatus(ctx context.Context, projectID int64, status string) error {
	p, ok := s.state.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.Status = status
	return nil
}

func (s *fakeStore) SetStatusAndType(ctx context.Context, projectID int64, status, projectType string) error {
	if err := s.SetStatus(ctx, projectID, status); err != nil {
		return err
	}
	s.state.projects[projectID].Type = projectType
	return nil
}

func (s *fakeStore) SetWetSignRequested(ctx context.Context, projectID int64, state int) error {
	p, ok := s.state.projects[projectID]
	if !ok || p.Meta == nil {
		return domain.ErrProjectNotFound
	}
	p.Meta.WetSignRequested = state
	return nil
}

func (s *fakeStore) SetLetterRegenerated(ctx context.Context, projectID int64) error {
	p, ok := s.state.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.IsLetterRegenerated = true
	return nil
}

func (s *fakeStore) IncrementStampPlansCount(ctx context.Context, projectID int64) error {
	p, ok := s.state.projects[projectID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	p.StampPlansRequestCount++
	return nil
}

func (s *fakeStore) BuildingDescriptionByID(ctx context.Context, id int64) (*domain.BuildingDescription, error) {
	bd, ok := s.state.buildingDescs[id]
	if !ok {
		return nil, domain.ErrReferenceNotFound
	}
	return bd, nil
}

func (s *fakeStore) SurroundingTerrainByID(ctx context.Context, id int64) (*domain.SurroundingTerrain, error) {
	st, ok := s.state.terrains[id]
	if !ok {
		return nil, domain.ErrReferenceNotFound
	}
	return st, nil
}

func (s *fakeStore) ExistingRoofLoadByID(ctx context.Context, id int64) (*domain.ExistingRoofLoad, error) {
	rf, ok := s.state.roofLoads[id]
	if !ok {
		return nil, domain.ErrReferenceNotFound
	}
	return rf, nil
}

func (s *fakeStore) DocumentTypeByID(ctx context.Context, id int64) (*domain.DocumentType, error) {
	dt, ok := s.state.docTypes[id]
	if !ok {
		return nil, domain.ErrDocumentTypeNotFound
	}
	return dt, nil
}

func (s *fakeStore) DocumentTypeBySlug(ctx context.Context, slug string) (*domain.DocumentType, error) {
	for _, dt := range s.state.docTypes {
		if dt.Slug == slug {
			return dt, nil
		}
	}
	return nil, domain.ErrDocumentTypeNotFound
}

func (s *fakeStore) DocumentByID(ctx context.Context, id int64) (*domain.Document, error) {
	d, ok := s.state.documents[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return d, nil
}

func (s *fakeStore) BundledDocument(ctx context.Context, bundleID string) (*domain.Document, error) {
	for _, d := range s.state.documents {
		if d.BundleID == bundleID && !d.Visibility {
			return d, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) HasDocumentOfType(ctx context.Context, projectID int64, typeSlug string) (bool, error) {
	for _, d := range s.state.documents {
		if d.ProjectID != projectID {
			continue
		}
		if dt, ok := s.state.docTypes[d.TypeID]; ok && dt.Slug == typeSlug {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) DocumentsByProject(ctx context.Context, projectID int64, visibleOnly bool) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range s.state.documents {
		if d.ProjectID != projectID {
			continue
		}
		if visibleOnly && !d.Visibility {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *fakeStore) CommentsByProject(ctx context.Context, projectID int64) ([]domain.Comment, error) {
	var out []domain.Comment
	for _, c := range s.state.comments {
		if c.ProjectID == projectID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateDocument(ctx context.Context, d *domain.Document) error {
	d.ID = s.id()
	s.state.documents[d.ID] = d
	return nil
}

func (s *fakeStore) CreateComment(ctx context.Context, c *domain.Comment) error {
	c.ID = s.id()
	s.state.comments[c.ID] = c
	return nil
}

func (s *fakeStore) AttachCommentDocument(ctx context.Context, commentID, documentID int64) error {
	s.state.commentDocs[commentID] = append(s.state.commentDocs[commentID], documentID)
	return nil
}

func (s *fakeStore) CreateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error {
	sp.ID = s.id()
	s.state.shipping[sp.ID] = sp
	return nil
}

func (s *fakeStore) ShippingProfileByID(ctx context.Context, id int64) (*domain.ShippingProfile, error) {
	sp, ok := s.state.shipping[id]
	if !ok {
		return nil, domain.ErrShippingNotFound
	}
	return sp, nil
}

func (s *fakeStore) UpdateShippingProfile(ctx context.Context, sp *domain.ShippingProfile) error {
	if _, ok := s.state.shipping[sp.ID]; !ok {
		return domain.ErrShippingNotFound
	}
	s.state.shipping[sp.ID] = sp
	return nil
}

func (s *fakeStore) AttachShippingProfile(ctx context.Context, projectID, profileID int64) error {
	s.state.projectShipping[projectID] = profileID
	return nil
}

func (s *fakeStore) DetachShippingProfile(ctx context.Context, profileID int64) error {
	for pid, id := range s.state.projectShipping {
		if id == profileID {
			delete(s.state.projectShipping, pid)
		}
	}
	return nil
}

func (s *fakeStore) UpdateShippingTracking(ctx context.Context, projectID int64, trackingNumber, notes string) error {
	if _, ok := s.state.projectShipping[projectID]; !ok {
		return domain.ErrShippingNotFound
	}
	s.state.tracking[projectID] = trackingNumber
	return nil
}

func (s *fakeStore) ProjectOverrides(ctx context.Context, projectID int64) (*domain.AhjOverride, error) {
	return s.state.overrides[projectID], nil
}

// fakeGate charges against the fake store's balance so transaction
// rollback undoes charges the way the real single-transaction flow does.
type fakeGate struct {
	store  *fakeStore
	prices map[string]int64
}

func (g *fakeGate) ServicePrice(ctx context.Context, slug string) (int64, error) {
	price, ok := g.prices[slug]
	if !ok {
		return 0, billing.ErrServiceNotFound
	}
	return price, nil
}

func (g *fakeGate) PayForProject(ctx context.Context, actor auth.Actor, p *domain.Project) error {
	return g.deduct(p.PriceCents)
}

func (g *fakeGate) PayForService(ctx context.Context, actor auth.Actor, slug string, p *domain.Project) error {
	price, err := g.ServicePrice(ctx, slug)
	if err != nil {
		return err
	}
	return g.deduct(price)
}

func (g *fakeGate) Refund(ctx context.Context, accountID string, cents int64) error {
	g.store.state.balance += cents
	return nil
}

func (g *fakeGate) deduct(cents int64) error {
	if g.store.state.balance < cents {
		return billing.ErrInsufficientBalance
	}
	g.store.state.balance -= cents
	return nil
}

type fakeResolver struct {
	result   lookup.Result
	values   map[string]string
	location lookup.Location
	err      error
	cached   int
}

func (r *fakeResolver) DoLookup(ctx context.Context, p *domain.Project) (lookup.Result, error) {
	return r.result, r.err
}

func (r *fakeResolver) DoLookupEngineerValues(ctx context.Context, p *domain.Project, ov *lookup.Override) (map[string]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.values, nil
}

func (r *fakeResolver) CheckLocation(ctx context.Context, p *domain.Project) (lookup.Location, error) {
	return r.location, r.err
}

func (r *fakeResolver) CacheIfMoved(ctx context.Context, p *domain.Project, loc lookup.Location, res lookup.Result) {
	r.cached++
}

type generatedCall struct {
	sharedID    string
	signed      bool
	regenerated bool
	wsOn        bool
	stamp       string
}

type fakeGenerator struct {
	calls []generatedCall
	fail  bool
}

func (g *fakeGenerator) Generate(ctx context.Context, p *domain.Project, view letters.ViewContext, regenerated bool, sharedID string, signed bool) (*letters.GeneratedLetter, error) {
	if g.fail {
		return nil, fmt.Errorf("render blew up")
	}
	g.calls = append(g.calls, generatedCall{
		sharedID: sharedID, signed: signed, regenerated: regenerated,
		wsOn: view.WsOn, stamp: view.Stamp,
	})
	variant := "print"
	if signed {
		variant = "signed"
	}
	return &letters.GeneratedLetter{
		FileName: fmt.Sprintf("IEBC-Letter-%s-%s.pdf", sharedID, variant),
		Key:      fmt.Sprintf("active/%d/letters/IEBC-Letter-%s-%s.pdf", p.ID, sharedID, variant),
		Signed:   signed,
	}, nil
}

func (g *fakeGenerator) RenderPDF(ctx context.Context, view letters.ViewContext) ([]byte, error) {
	if g.fail {
		return nil, fmt.Errorf("render blew up")
	}
	return []byte("%PDF-fake"), nil
}

func (g *fakeGenerator) PreviewHTML(view letters.ViewContext) (string, error) {
	return "<div>preview</div>", nil
}

type fakeStamps struct {
	files map[string]letters.StampFiles
}

func (s *fakeStamps) FilesByState(ctx context.Context, state string) (letters.StampFiles, bool, error) {
	f, ok := s.files[state]
	return f, ok, nil
}

type fakeSigner struct{}

func (fakeSigner) SignFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append(data, []byte("-signed")...), 0o644)
}

type fakeFiles struct {
	objects map[string][]byte
}

func (f *fakeFiles) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return nil
}

func (f *fakeFiles) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeBus struct {
	events []eventRecord
	fail   bool
}

type eventRecord struct {
	kind      string
	projectID int64
}

func (b *fakeBus) Publish(ctx context.Context, e events.Event) error {
	if b.fail {
		return fmt.Errorf("broker down")
	}
	b.events = append(b.events, eventRecord{kind: string(e.Kind), projectID: e.ProjectID})
	return nil
}

func (b *fakeBus) kinds() []string {
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.kind)
	}
	return out
}

// env wires a Service over the fakes with sensible seed data: one
// compatible reference triple, one incompatible terrain, the letter and
// plans document types, and a CA stamp.
type env struct {
	svc       *Service
	store     *fakeStore
	gate      *fakeGate
	resolver  *fakeResolver
	generator *fakeGenerator
	files     *fakeFiles
	bus       *fakeBus
}

const (
	bdOK      = int64(1)
	terrainOK = int64(2)
	terrainNC = int64(3) // incompatible with bdOK
	roofOK    = int64(4)
	roofBad   = int64(5)

	typeLetter    = int64(10)
	typePlans     = int64(11)
	typePlanCheck = int64(12)
)

func newEnv(t testing.TB) *env {
	t.Helper()

	store := newFakeStore()
	store.state.buildingDescs[bdOK] = &domain.BuildingDescription{ID: bdOK, Name: "Single story office", RiskCategoryInternalName: "risk_ii"}
	store.state.terrains[terrainOK] = &domain.SurroundingTerrain{ID: terrainOK, Name: "Suburban", ExposureCategory: "B"}
	store.state.terrains[terrainNC] = &domain.SurroundingTerrain{ID: terrainNC, Name: "Open coastal", ExposureCategory: "D"}
	store.state.roofLoads[roofOK] = &domain.ExistingRoofLoad{ID: roofOK, Name: "Composition shingle", LoadCategory: "light"}
	store.state.roofLoads[roofBad] = &domain.ExistingRoofLoad{ID: roofBad, Name: "Clay tile over spaced sheathing", LoadCategory: "heavy"}
	store.state.docTypes[typeLetter] = &domain.DocumentType{ID: typeLetter, Name: "Letter", Slug: domain.DocTypeLetter, SavePath: "letters"}
	store.state.docTypes[typePlans] = &domain.DocumentType{ID: typePlans, Name: "Plans", Slug: domain.DocTypePlans, SavePath: "plans"}
	store.state.docTypes[typePlanCheck] = &domain.DocumentType{ID: typePlanCheck, Name: "Plan check comments", Slug: domain.DocTypePlanCheckComments, SavePath: "plan-check"}

	gate := &fakeGate{store: store, prices: map[string]int64{
		domain.ServiceIEBCLetter:        350_00,
		domain.ServiceWetStamp:          75_00,
		domain.ServiceAdditionalRestamp: 50_00,
	}}
	resolver := &fakeResolver{
		result: lookup.Result{Values: map[string]lookup.Metric{
			lookup.MetricSnow: {Value: "20", Status: "resolved"},
			lookup.MetricWind: {Value: "95", Status: "resolved"},
		}},
		values:   map[string]string{lookup.MetricSnow: "20", lookup.MetricWind: "95"},
		location: lookup.Location{State: "CA", County: "Placer", City: "Auburn", Snow: "20", Wind: "95"},
	}
	generator := &fakeGenerator{}
	files := &fakeFiles{}
	bus := &fakeBus{}

	rules := compliance.Ruleset{
		CompatiblePairs:    map[string]map[string]bool{"risk_ii": {"B": true}},
		SupportedRoofLoads: map[string]bool{"light": true},
	}
	stamps := &fakeStamps{files: map[string]letters.StampFiles{
		"CA": {Signed: "ca-signed.png", Unsigned: "ca-ws.png"},
		"NC": {Signed: "nc-signed.png", Unsigned: "nc-ws.png"},
	}}

	svc := New(store, compliance.New(rules), gate, resolver, generator, stamps,
		fakeSigner{}, files, bus, letters.NewScratch(t.TempDir()))

	return &env{svc: svc, store: store, gate: gate, resolver: resolver,
		generator: generator, files: files, bus: bus}
}

func (e *env) seedProject(state string, roofID int64) *domain.Project {
	p := &domain.Project{
		UserID:     "client-1",
		Status:     domain.StatusProcessed,
		Type:       domain.TypeIEBC,
		PriceCents: 350_00,
		Address:    "123 Main St",
		State:      state,
		County:     "Placer",
		City:       "Auburn",
		Zip:        "95603",
	}
	meta := &domain.ProjectMeta{
		BuildingDescriptionID: bdOK,
		SurroundingTerrainID:  terrainOK,
		ExistingRoofTypeID:    roofID,
		RoofSlope:             "4:12",
	}
	_ = e.store.CreateProject(context.Background(), p, meta)
	return p
}

func clientActor() auth.Actor {
	return auth.Actor{ID: "client-1", Roles: []string{auth.RoleStandardUser}}
}

func engineerActor() auth.Actor {
	return auth.Actor{ID: "eng-1", Roles: []string{auth.RolePzseEngineer}}
}
