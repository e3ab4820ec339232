package service

import (
	"archive/zip"
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pzse-platform/iebc-backend/internal/compliance"
	"github.com/pzse-platform/iebc-backend/internal/events"
	"github.com/pzse-platform/iebc-backend/internal/lookup"
	"github.com/pzse-platform/iebc-backend/internal/projects/domain"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestStoreFirstStepCreatesProcessedProject(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.StoreFirstStep(context.Background(), clientActor(), FirstStepInput{
		Address: "123 Main St", State: "CA", County: "Placer", City: "Auburn", Zip: "95603",
		Meta: MetaInput{BuildingDescriptionID: bdOK, SurroundingTerrainID: terrainOK},
	})
	require.NoError(t, err)
	assert.Empty(t, res.AdditionalMessages)

	p := e.store.state.projects[res.ProjectID]
	require.NotNil(t, p)
	assert.Equal(t, domain.StatusProcessed, p.Status)
	assert.Equal(t, domain.TypeIEBC, p.Type)
	assert.Equal(t, int64(350_00), p.PriceCents)

	// Creation never charges; payment happens at the finish transition.
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
}

func TestStoreFirstStepIncompatiblePairStillSaves(t *testing.T) {
	e := newEnv(t)

	res, err := e.svc.StoreFirstStep(context.Background(), clientActor(), FirstStepInput{
		Address: "123 Main St", State: "CA",
		Meta: MetaInput{BuildingDescriptionID: bdOK, SurroundingTerrainID: terrainNC},
	})
	require.NoError(t, err)

	assert.Contains(t, res.AdditionalMessages, compliance.FieldBuildingDescription)
	assert.Contains(t, res.AdditionalMessages, compliance.FieldSurroundingTerrain)
	assert.NotNil(t, e.store.state.projects[res.ProjectID])
}

func TestStoreFirstStepUnknownReferenceFails(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.StoreFirstStep(context.Background(), clientActor(), FirstStepInput{
		Address: "123 Main St", State: "CA",
		Meta: MetaInput{BuildingDescriptionID: 999, SurroundingTerrainID: terrainOK},
	})
	require.ErrorIs(t, err, domain.ErrReferenceNotFound)
	assert.Empty(t, e.store.state.projects)
}

func TestUpdateSecondStepSoftRoofMessage(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	res, err := e.svc.UpdateSecondStep(context.Background(), clientActor(), p.ID, SecondStepInput{
		Meta: MetaInput{ExistingRoofTypeID: roofBad, RoofSlope: "6:12"},
	})
	require.NoError(t, err)

	assert.Contains(t, res.AdditionalMessages, compliance.FieldExistingRoofType)
	got := e.store.state.projects[p.ID]
	assert.Equal(t, roofBad, got.Meta.ExistingRoofTypeID)
	assert.Equal(t, "6:12", got.Meta.RoofSlope)
	assert.Equal(t, 1, e.resolver.cached)
}

func TestStoreDocumentsPlanCheckFlipsStatus(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.Status = domain.StatusCompleted

	err := e.svc.StoreDocuments(context.Background(), engineerActor(), p.ID, DocumentsInput{
		TypeID: typePlanCheck,
		Notes:  "sheet S-2 missing connection detail",
		Files:  []FileUpload{{Name: "comments.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPlanCheckComments, e.store.state.projects[p.ID].Status)
	assert.Equal(t, []string{string(events.PlanCheckFileAdded)}, e.bus.kinds())
	assert.Contains(t, e.files.objects, "active/"+itoa(p.ID)+"/plan-check/comments.pdf")

	// Comment created and the file attached to it.
	require.Len(t, e.store.state.comments, 1)
	for id := range e.store.state.comments {
		assert.Len(t, e.store.state.commentDocs[id], 1)
	}
}

func TestStoreDocumentsRestampChargeAfterFreeLimit(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.StampPlansRequestCount = domain.FreeRestampLimit

	err := e.svc.StoreDocuments(context.Background(), clientActor(), p.ID, DocumentsInput{
		TypeID: typePlans,
		Files:  []FileUpload{{Name: "plans-v6.pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.FreeRestampLimit+1, e.store.state.projects[p.ID].StampPlansRequestCount)
	assert.Equal(t, int64(950_00), e.store.state.balance)
	assert.Equal(t, []string{string(events.ClientUploadedDocument)}, e.bus.kinds())
}

func TestStoreDocumentsNoRestampChargeWithinLimit(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.StampPlansRequestCount = 1

	err := e.svc.StoreDocuments(context.Background(), clientActor(), p.ID, DocumentsInput{
		TypeID: typePlans,
		Files:  []FileUpload{{Name: "plans-v2.pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
}

func TestStoreDocumentsEngineerNeverChargedForRestamp(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.StampPlansRequestCount = domain.FreeRestampLimit + 3

	err := e.svc.StoreDocuments(context.Background(), engineerActor(), p.ID, DocumentsInput{
		TypeID: typePlans,
		Files:  []FileUpload{{Name: "plans-v9.pdf", Data: []byte("pdf")}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
	assert.Equal(t, []string{string(events.PzseUploadedDocument)}, e.bus.kinds())
}

func TestDownloadDocumentStaffGetsBundleZip(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	signed := &domain.Document{ProjectID: p.ID, FileName: "letter-signed.pdf", TypeID: typeLetter, BundleID: "gen-1", Visibility: true}
	print := &domain.Document{ProjectID: p.ID, FileName: "letter-print.pdf", TypeID: typeLetter, BundleID: "gen-1", Visibility: false}
	require.NoError(t, e.store.CreateDocument(ctx, signed))
	require.NoError(t, e.store.CreateDocument(ctx, print))
	require.NoError(t, e.files.Put(ctx, "active/"+itoa(p.ID)+"/letters/letter-signed.pdf", []byte("signed"), "application/pdf"))
	require.NoError(t, e.files.Put(ctx, "active/"+itoa(p.ID)+"/letters/letter-print.pdf", []byte("print"), "application/pdf"))

	dl, err := e.svc.DownloadDocument(ctx, engineerActor(), signed.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/zip", dl.ContentType)
	assert.True(t, strings.HasSuffix(dl.Name, ".zip"))

	zr, err := zip.NewReader(bytes.NewReader(dl.Data), int64(len(dl.Data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestListDocumentsHidesUnsignedVariantFromClients(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	require.NoError(t, e.store.CreateDocument(ctx, &domain.Document{
		ProjectID: p.ID, FileName: "letter-signed.pdf", TypeID: typeLetter, BundleID: "gen-1", Visibility: true,
	}))
	require.NoError(t, e.store.CreateDocument(ctx, &domain.Document{
		ProjectID: p.ID, FileName: "letter-print.pdf", TypeID: typeLetter, BundleID: "gen-1", Visibility: false,
	}))
	require.NoError(t, e.store.CreateComment(ctx, &domain.Comment{ProjectID: p.ID, CommentedBy: "eng-1", Notes: "done"}))

	clientView, err := e.svc.ListDocuments(ctx, clientActor(), p.ID)
	require.NoError(t, err)
	assert.Len(t, clientView.Documents, 1)
	assert.Len(t, clientView.Comments, 1)

	staffView, err := e.svc.ListDocuments(ctx, engineerActor(), p.ID)
	require.NoError(t, err)
	assert.Len(t, staffView.Documents, 2)
}

func TestDownloadDocumentClientGetsSingleFile(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	signed := &domain.Document{ProjectID: p.ID, FileName: "letter-signed.pdf", TypeID: typeLetter, BundleID: "gen-1", Visibility: true}
	require.NoError(t, e.store.CreateDocument(ctx, signed))
	require.NoError(t, e.files.Put(ctx, "active/"+itoa(p.ID)+"/letters/letter-signed.pdf", []byte("signed"), "application/pdf"))

	dl, err := e.svc.DownloadDocument(ctx, clientActor(), signed.ID)
	require.NoError(t, err)
	assert.Equal(t, "letter-signed.pdf", dl.Name)
	assert.Equal(t, []byte("signed"), dl.Data)
}

func TestAddCommentSelectsEventByRole(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	require.NoError(t, e.svc.AddComment(ctx, clientActor(), p.ID, CommentInput{Notes: "when will this be done?"}))
	require.NoError(t, e.svc.AddComment(ctx, engineerActor(), p.ID, CommentInput{Notes: "reviewing now"}))
	require.NoError(t, e.svc.AddComment(ctx, engineerActor(), p.ID, CommentInput{Notes: "see sheet S-2", PlanCheck: true}))

	assert.Equal(t, []string{
		string(events.ProjectCommented),
		string(events.PzseUserCommentedProject),
		string(events.PlanCheckCommentAdded),
	}, e.bus.kinds())
	assert.Equal(t, domain.StatusPlanCheckComments, e.store.state.projects[p.ID].Status)
}

func TestWetStampRequestAndCancelRefunds(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	require.NoError(t, e.svc.StoreWetStampRequest(ctx, clientActor(), p.ID, ShippingInput{
		Name: "Pat", Address: "1 Oak Way", City: "Auburn", State: "CA", Zip: "95603",
	}))
	assert.Equal(t, int64(925_00), e.store.state.balance)
	assert.Equal(t, domain.WetSignRequested, e.store.state.projects[p.ID].Meta.WetSignRequested)

	require.NoError(t, e.svc.CancelWetStampRequest(ctx, clientActor(), p.ID))
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
	assert.Equal(t, domain.WetSignCancelled, e.store.state.projects[p.ID].Meta.WetSignRequested)

	assert.Equal(t, []string{
		string(events.WetStampRequested),
		string(events.WetStampCancelled),
	}, e.bus.kinds())
}

func TestCancelWetStampEngineerNoRefund(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.Meta.WetSignRequested = domain.WetSignRequested

	require.NoError(t, e.svc.CancelWetStampRequest(context.Background(), engineerActor(), p.ID))
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
	assert.Equal(t, domain.WetSignCancelled, e.store.state.projects[p.ID].Meta.WetSignRequested)
}

func TestCancelWetStampWithoutPendingRequest(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	err := e.svc.CancelWetStampRequest(context.Background(), clientActor(), p.ID)
	assert.ErrorIs(t, err, domain.ErrShippingNotFound)
}

func TestChangeStatusRejectsUnknown(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	err := e.svc.ChangeStatus(context.Background(), engineerActor(), p.ID, StatusInput{Status: "shipped"})
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.Equal(t, domain.StatusProcessed, e.store.state.projects[p.ID].Status)
}

func TestChangeStatusWithTracking(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	ctx := context.Background()
	sp := &domain.ShippingProfile{AccountID: "client-1", Name: "Pat"}
	require.NoError(t, e.store.CreateShippingProfile(ctx, sp))
	require.NoError(t, e.store.AttachShippingProfile(ctx, p.ID, sp.ID))

	require.NoError(t, e.svc.ChangeStatus(ctx, engineerActor(), p.ID, StatusInput{
		Status: domain.StatusCompleted, TrackingNumber: "1Z999", TrackingNotes: "USPS priority",
	}))
	assert.Equal(t, domain.StatusCompleted, e.store.state.projects[p.ID].Status)
	assert.Equal(t, "1Z999", e.store.state.tracking[p.ID])
	assert.Equal(t, []string{string(events.ProjectStatusChanged)}, e.bus.kinds())
}

func TestLookupPreviewHappyPath(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	out, err := e.svc.LookupPreview(context.Background(), clientActor(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, out.Preview)
	assert.Empty(t, out.FieldErrors)
	assert.Empty(t, out.Message)

	// Preview only: nothing generated, charged or committed.
	assert.Empty(t, e.generator.calls)
	assert.Equal(t, int64(1_000_00), e.store.state.balance)
	assert.Equal(t, domain.StatusProcessed, e.store.state.projects[p.ID].Status)
}

func TestLookupPreviewValidationErrors(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofBad)

	out, err := e.svc.LookupPreview(context.Background(), clientActor(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Preview)
	assert.Contains(t, out.FieldErrors, compliance.FieldExistingRoofType)
}

func TestLookupPreviewUnresolvedMessage(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	e.resolver.result = lookup.Result{Message: "no coverage"}

	out, err := e.svc.LookupPreview(context.Background(), clientActor(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, out.Preview)
	assert.Equal(t, "no coverage", out.Message)
}

func TestRegeneratePDFMarksProjectAndRecordsBothVariants(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)
	p.Status = domain.StatusForwardedToEngineer

	require.NoError(t, e.svc.RegeneratePDF(context.Background(), engineerActor(), p.ID))

	assert.True(t, e.store.state.projects[p.ID].IsLetterRegenerated)
	require.Len(t, e.generator.calls, 2)
	assert.True(t, e.generator.calls[0].regenerated)
	assert.True(t, e.generator.calls[1].regenerated)
	assert.Equal(t, e.generator.calls[0].sharedID, e.generator.calls[1].sharedID)
	assert.Len(t, e.store.state.documents, 2)
}

func TestDownloadPDFStreamsSignedFile(t *testing.T) {
	e := newEnv(t)
	p := e.seedProject("CA", roofOK)

	dl, err := e.svc.DownloadPDF(context.Background(), clientActor(), p.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dl.Name, "PZSE-IEBC-Letter-"))
	assert.True(t, strings.HasSuffix(dl.Name, ".pdf"))
	assert.Equal(t, "application/pdf", dl.ContentType)
	assert.Equal(t, []byte("%PDF-fake-signed"), dl.Data)
}
