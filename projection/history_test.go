package projection

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"backchannel/domain"
	"backchannel/repositories"
)

type feedFixture struct {
	paginator *Paginator
	messages  repositories.MessageRepository
	author    domain.AnonymousIdentity
}

func newFeedFixture(t *testing.T) feedFixture {
	t.Helper()
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	messages := repositories.NewMessageRepository(db, log)
	identities := repositories.NewIdentityRepository(db, log)

	author, err := identities.Create(context.Background(), domain.AnonymousIdentity{
		ChannelID:           "channel-1",
		SessionID:           "session-1",
		Name:                "Anonymous Otter",
		IconURL:             "https://example.com/otter.png",
		IconBackgroundColor: "rgb(0,163,187)",
	})
	req.NoError(err)

	return feedFixture{
		paginator: NewPaginator(messages, identities, log),
		messages:  messages,
		author:    author,
	}
}

func (f feedFixture) submit(t *testing.T, content string, sentAt time.Time) domain.Message {
	t.Helper()
	message := domain.Message{
		ID:         uuid.NewString(),
		ChannelID:  "channel-1",
		AnonUserID: f.author.ID,
		Content:    content,
		Status:     domain.MessagePending,
		SentAt:     sentAt,
	}
	require.NoError(t, f.messages.Create(context.Background(), message))
	return message
}

func (f feedFixture) approve(t *testing.T, id string, at time.Time) {
	t.Helper()
	_, err := f.messages.Approve(context.Background(), id, at)
	require.NoError(t, err)
}

func Test_Initial_History_Then_Cursor_Page(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	// Given 20 approved messages
	for i := 1; i <= 20; i++ {
		message := fixture.submit(t, fmt.Sprintf("Message %d", i), base.Add(time.Duration(i)*time.Second))
		fixture.approve(t, message.ID, base.Add(time.Duration(i)*time.Minute))
	}

	// When fetching the initial history
	page1, err := fixture.paginator.InitialHistory(ctx, "channel-1")
	req.NoError(err)

	// Then the newest 15 come back oldest first with a continuation cursor
	req.Len(page1.Messages, 15)
	req.Equal("Message 6", page1.Messages[0].Content)
	req.Equal("Message 20", page1.Messages[14].Content)
	req.True(page1.HasMore)
	req.NotNil(page1.Cursor)

	// And the cursor page holds the remaining 5, strictly older, no overlap
	page2, err := fixture.paginator.PageBefore(ctx, "channel-1", *page1.Cursor)
	req.NoError(err)
	req.Len(page2.Messages, 5)
	req.Equal("Message 1", page2.Messages[0].Content)
	req.Equal("Message 5", page2.Messages[4].Content)
	req.False(page2.HasMore)
}

func Test_Short_Feed_Has_No_Cursor(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	base := time.Now().UTC()

	for i := 1; i <= 3; i++ {
		message := fixture.submit(t, fmt.Sprintf("Message %d", i), base.Add(time.Duration(i)*time.Second))
		fixture.approve(t, message.ID, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := fixture.paginator.InitialHistory(context.Background(), "channel-1")
	req.NoError(err)
	req.Len(page.Messages, 3)
	req.False(page.HasMore)
	req.Nil(page.Cursor)
}

func Test_History_Excludes_Pending_Messages(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	base := time.Now().UTC()

	approved := fixture.submit(t, "approved one", base)
	fixture.approve(t, approved.ID, base.Add(time.Minute))
	fixture.submit(t, "still pending", base.Add(time.Second))

	page, err := fixture.paginator.InitialHistory(context.Background(), "channel-1")
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("approved one", page.Messages[0].Content)
}

func Test_History_Orders_By_Approval_Time(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	base := time.Now().UTC()

	// Given first submitted but approved last
	early := fixture.submit(t, "submitted first", base)
	late := fixture.submit(t, "submitted second", base.Add(time.Second))
	fixture.approve(t, late.ID, base.Add(time.Minute))
	fixture.approve(t, early.ID, base.Add(2*time.Minute))

	page, err := fixture.paginator.InitialHistory(context.Background(), "channel-1")
	req.NoError(err)

	// Then approval order wins over submission order
	req.Len(page.Messages, 2)
	req.Equal("submitted second", page.Messages[0].Content)
	req.Equal("submitted first", page.Messages[1].Content)
}

func Test_History_Carries_Author_Identity(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	base := time.Now().UTC()

	message := fixture.submit(t, "hello", base)
	fixture.approve(t, message.ID, base.Add(time.Minute))

	page, err := fixture.paginator.InitialHistory(context.Background(), "channel-1")
	req.NoError(err)
	req.Len(page.Messages, 1)
	req.Equal("Anonymous Otter", page.Messages[0].AnonUser.Name)
	req.Equal("https://example.com/otter.png", page.Messages[0].AnonUser.IconURL)
}

func Test_Owner_View_Includes_Every_Pending_Message(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	base := time.Now().UTC()

	approved := fixture.submit(t, "public", base)
	fixture.approve(t, approved.ID, base.Add(time.Minute))
	fixture.submit(t, "awaiting moderation", base.Add(time.Second))

	view, err := fixture.paginator.OwnerView(context.Background(), "channel-1")
	req.NoError(err)
	req.Len(view, 2)
}

func Test_Anonymous_View_Hides_Other_Authors_Pending(t *testing.T) {
	req := require.New(t)
	fixture := newFeedFixture(t)
	ctx := context.Background()
	base := time.Now().UTC()

	// Given an approved message, the viewer's pending one and a stranger's
	approved := fixture.submit(t, "public", base)
	fixture.approve(t, approved.ID, base.Add(time.Minute))
	fixture.submit(t, "mine, pending", base.Add(time.Second))
	req.NoError(fixture.messages.Create(ctx, domain.Message{
		ID:         uuid.NewString(),
		ChannelID:  "channel-1",
		AnonUserID: uuid.NewString(),
		Content:    "someone else's pending",
		Status:     domain.MessagePending,
		SentAt:     base.Add(2 * time.Second),
	}))

	view, err := fixture.paginator.AnonymousView(ctx, "channel-1", fixture.author.ID)
	req.NoError(err)

	// Then the stranger's pending message is invisible
	req.Len(view, 2)
	req.Equal("mine, pending", view[0].Content)
	req.Equal("public", view[1].Content)
}
