package store

import (
	"context"
	"time"

	"PulseChat/module/chat/model"
	errs "PulseChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collChats    = "chats"
	collMessages = "messages"
)

type Repo struct {
	DB *mongo.Database
}

func NewRepo(db *mongo.Database) *Repo { return &Repo{DB: db} }

func (r *Repo) chats() *mongo.Collection    { return r.DB.Collection(collChats) }
func (r *Repo) messages() *mongo.Collection { return r.DB.Collection(collMessages) }

func (r *Repo) InsertChat(ctx context.Context, c *model.Chat) error {
	if _, err := r.chats().InsertOne(ctx, c); err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) FindChat(ctx context.Context, chatID string) (*model.Chat, error) {
	var c model.Chat
	err := r.chats().FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("chat not found")
	}
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &c, nil
}

// FindDirect looks up the direct chat between two users, if any.
func (r *Repo) FindDirect(ctx context.Context, a, b string) (*model.Chat, error) {
	var c model.Chat
	err := r.chats().FindOne(ctx, bson.M{
		"group_chat": false,
		"members":    bson.M{"$all": bson.A{a, b}},
	}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("direct chat not found")
	}
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &c, nil
}

// Members implements the live layer's membership source. Results come from
// the store, never from anything a client sent.
func (r *Repo) Members(ctx context.Context, chatID string) ([]string, error) {
	c, err := r.FindChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return c.Members, nil
}

func (r *Repo) ChatsForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	cur, err := r.chats().Find(ctx,
		bson.M{"members": userID},
		options.Find().SetSort(bson.M{"update_time": -1}),
	)
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

func (r *Repo) GroupsForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	cur, err := r.chats().Find(ctx,
		bson.M{"members": userID, "group_chat": true},
		options.Find().SetSort(bson.M{"update_time": -1}),
	)
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

func (r *Repo) SetMembers(ctx context.Context, chatID string, members []string) error {
	_, err := r.chats().UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"members": members, "update_time": time.Now().UTC()}},
	)
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) SetName(ctx context.Context, chatID, name string) error {
	_, err := r.chats().UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"name": name, "update_time": time.Now().UTC()}},
	)
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) Touch(ctx context.Context, chatID string) error {
	_, err := r.chats().UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"update_time": time.Now().UTC()}},
	)
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) DeleteChat(ctx context.Context, chatID string) error {
	if _, err := r.chats().DeleteOne(ctx, bson.M{"chat_id": chatID}); err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

// ---- admin browse/stats reads ----

// ChatsPage lists all chats newest first, with the overall total.
func (r *Repo) ChatsPage(ctx context.Context, page, limit int64) ([]model.Chat, int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := r.chats().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	cur, err := r.chats().Find(ctx, bson.M{}, options.Find().
		SetSort(bson.M{"create_time": -1}).
		SetSkip((page-1)*limit).
		SetLimit(limit),
	)
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.Chat
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, total, nil
}

// MessagesAllPage lists messages across every chat, newest first.
func (r *Repo) MessagesAllPage(ctx context.Context, page, limit int64) ([]model.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := r.messages().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	cur, err := r.messages().Find(ctx, bson.M{}, options.Find().
		SetSort(bson.M{"create_time": -1}).
		SetSkip((page-1)*limit).
		SetLimit(limit),
	)
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, total, nil
}

// CountChats counts chats of one kind.
func (r *Repo) CountChats(ctx context.Context, group bool) (int64, error) {
	n, err := r.chats().CountDocuments(ctx, bson.M{"group_chat": group})
	if err != nil {
		return 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return n, nil
}

// CountChatsForUser counts the chats of one kind a user belongs to.
func (r *Repo) CountChatsForUser(ctx context.Context, userID string, group bool) (int64, error) {
	n, err := r.chats().CountDocuments(ctx, bson.M{"members": userID, "group_chat": group})
	if err != nil {
		return 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return n, nil
}

// CountMessages counts messages; an empty chatID counts across all chats.
func (r *Repo) CountMessages(ctx context.Context, chatID string) (int64, error) {
	filter := bson.M{}
	if chatID != "" {
		filter["chat_id"] = chatID
	}
	n, err := r.messages().CountDocuments(ctx, filter)
	if err != nil {
		return 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return n, nil
}

// MessageTimesSince returns the create times of messages newer than since;
// feeds the dashboard activity chart.
func (r *Repo) MessageTimesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	cur, err := r.messages().Find(ctx,
		bson.M{"create_time": bson.M{"$gte": since}},
		options.Find().SetProjection(bson.M{"create_time": 1}),
	)
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var rows []struct {
		CreateTime time.Time `bson:"create_time"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	out := make([]time.Time, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.CreateTime)
	}
	return out, nil
}

// ---- messages ----

func (r *Repo) InsertMessage(ctx context.Context, m *model.Message) error {
	if _, err := r.messages().InsertOne(ctx, m); err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

// MessagesPage returns one page of history. Pages are counted from the
// newest message; within a page messages come back oldest first so the
// client can append in order.
func (r *Repo) MessagesPage(ctx context.Context, chatID string, page int64) ([]model.Message, int64, error) {
	if page < 1 {
		page = 1
	}
	filter := bson.M{"chat_id": chatID}
	total, err := r.messages().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	totalPages := (total + model.MessagePageSize - 1) / model.MessagePageSize
	cur, err := r.messages().Find(ctx, filter, options.Find().
		SetSort(bson.M{"create_time": -1}).
		SetSkip((page-1)*model.MessagePageSize).
		SetLimit(model.MessagePageSize),
	)
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var msgs []model.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, totalPages, nil
}

// MessagesWithAttachments lists messages carrying stored media; used when a
// chat is deleted so its objects can be removed too.
func (r *Repo) MessagesWithAttachments(ctx context.Context, chatID string) ([]model.Message, error) {
	cur, err := r.messages().Find(ctx, bson.M{
		"chat_id":     chatID,
		"attachments": bson.M{"$exists": true, "$ne": bson.A{}},
	})
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

func (r *Repo) DeleteMessages(ctx context.Context, chatID string) error {
	if _, err := r.messages().DeleteMany(ctx, bson.M{"chat_id": chatID}); err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}
