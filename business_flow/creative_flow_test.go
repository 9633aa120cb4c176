package businessflow_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/amirphl/Lovelify-Dash/app/dto"
	"github.com/amirphl/Lovelify-Dash/app/services"
	businessflow "github.com/amirphl/Lovelify-Dash/business_flow"
	"github.com/amirphl/Lovelify-Dash/models"
	"github.com/amirphl/Lovelify-Dash/repository"
	testingutil "github.com/amirphl/Lovelify-Dash/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCreativeFlow(t *testing.T) {
	tdb, fx := setupDB(t)
	ctx := testingutil.CreateTestContext()

	storage, err := services.NewCreativeStorage(t.TempDir(), 1<<20, 0, 64)
	require.NoError(t, err)

	creativeRepo := repository.NewCreativeRepository(tdb.DB)
	adRepo := repository.NewAdRepository(tdb.DB)
	auditRepo := repository.NewAuditLogRepository(tdb.DB)
	flow := businessflow.NewCreativeFlow(creativeRepo, adRepo, auditRepo, storage, tdb.DB)

	ws, err := fx.CreateTestWorkspace()
	require.NoError(t, err)
	owner, err := fx.CreateTestUser(ws.ID, models.UserRoleOwner)
	require.NoError(t, err)
	other, err := fx.CreateTestWorkspace()
	require.NoError(t, err)

	upload := func(t *testing.T, name, filename string, content []byte, tags ...string) (*dto.CreativeResponse, error) {
		t.Helper()
		return flow.UploadCreative(ctx, &dto.UploadCreativeRequest{
			WorkspaceID: ws.ID,
			UserID:      owner.ID,
			Name:        name,
			Tags:        tags,
			Filename:    filename,
			Size:        int64(len(content)),
			File:        bytes.NewReader(content),
		}, testMetadata())
	}

	var banner *dto.CreativeResponse

	t.Run("UploadImage", func(t *testing.T) {
		banner, err = upload(t, "", "Spring Banner.png", encodePNG(t, 400, 200), " Spring ", "sale", "spring")
		require.NoError(t, err)
		assert.Equal(t, "Spring Banner", banner.Name)
		assert.Equal(t, "image", banner.Type)
		assert.Equal(t, "image/png", banner.Format)
		require.NotNil(t, banner.Width)
		assert.Equal(t, 400, *banner.Width)
		assert.Equal(t, []string{"spring", "sale"}, banner.Tags)
		assert.True(t, banner.HasThumbnail)
	})

	t.Run("RejectsText", func(t *testing.T) {
		_, err := upload(t, "notes", "notes.txt", []byte(strings.Repeat("plain text ", 20)))
		require.Error(t, err)
		assert.True(t, businessflow.IsUnsupportedMedia(err))
	})

	t.Run("DownloadAndThumbnail", func(t *testing.T) {
		require.NotNil(t, banner)
		file, err := flow.DownloadCreative(ctx, ws.ID, banner.UUID)
		require.NoError(t, err)
		assert.Equal(t, "Spring Banner.png", file.Filename)
		_, statErr := os.Stat(file.Path)
		assert.NoError(t, statErr)

		thumb, err := flow.CreativeThumbnail(ctx, ws.ID, banner.UUID)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", thumb.ContentType)
		assert.Equal(t, "Spring Banner_thumb.jpg", thumb.Filename)
	})

	t.Run("ListByTag", func(t *testing.T) {
		resp, err := flow.ListCreatives(ctx, &dto.ListCreativesRequest{WorkspaceID: ws.ID, Tag: "SALE"})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)

		resp, err = flow.ListCreatives(ctx, &dto.ListCreativesRequest{WorkspaceID: other.ID})
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
	})

	t.Run("OtherWorkspaceGets404", func(t *testing.T) {
		require.NotNil(t, banner)
		_, err := flow.GetCreative(ctx, other.ID, banner.UUID)
		assert.True(t, businessflow.IsNotFound(err))
	})

	t.Run("DeleteBlockedWhileReferenced", func(t *testing.T) {
		require.NotNil(t, banner)
		campaign, err := fx.CreateTestCampaign(ws.ID, "Spring Sale", models.DeliveryStatusDraft)
		require.NoError(t, err)
		adSet, err := fx.CreateTestAdSet(campaign, "All adults")
		require.NoError(t, err)
		stored, err := creativeRepo.ByUUID(ctx, banner.UUID)
		require.NoError(t, err)
		require.NotNil(t, stored)

		ad := &models.Ad{
			WorkspaceID:    ws.ID,
			AdSetID:        adSet.ID,
			Name:           "Banner ad",
			Headline:       "Spring",
			CreativeID:     &stored.ID,
			DestinationURL: "https://shop.example.com",
		}
		require.NoError(t, tdb.DB.Create(ad).Error)

		err = flow.DeleteCreative(ctx, ws.ID, owner.ID, banner.UUID, testMetadata())
		assert.ErrorIs(t, err, businessflow.ErrCreativeInUse)

		require.NoError(t, tdb.DB.Delete(ad).Error)
		require.NoError(t, flow.DeleteCreative(ctx, ws.ID, owner.ID, banner.UUID, testMetadata()))

		_, err = flow.GetCreative(ctx, ws.ID, banner.UUID)
		assert.ErrorIs(t, err, businessflow.ErrCreativeNotFound)
	})
}
