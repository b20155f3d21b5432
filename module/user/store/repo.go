package store

import (
	"context"
	"time"

	"PulseChat/module/user/model"
	errs "PulseChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collUsers    = "users"
	collRequests = "friend_requests"
)

type Repo struct {
	DB *mongo.Database
}

func NewRepo(db *mongo.Database) *Repo { return &Repo{DB: db} }

func (r *Repo) users() *mongo.Collection    { return r.DB.Collection(collUsers) }
func (r *Repo) requests() *mongo.Collection { return r.DB.Collection(collRequests) }

func (r *Repo) InsertUser(ctx context.Context, u *model.User) error {
	if _, err := r.users().InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errs.ErrPolicyViolation.WithDetail("username already taken")
		}
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) FindByID(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := r.users().FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("user not found")
	}
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &u, nil
}

func (r *Repo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.users().FindOne(ctx, bson.M{"username": username}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("user not found")
	}
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &u, nil
}

func (r *Repo) FindMany(ctx context.Context, userIDs []string) ([]model.User, error) {
	cur, err := r.users().Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

// Search matches usernames by case-insensitive prefix, excluding the caller
// and anyone in exclude (typically existing friends).
func (r *Repo) Search(ctx context.Context, callerID, name string, exclude []string) ([]model.User, error) {
	notIn := append([]string{callerID}, exclude...)
	filter := bson.M{
		"username": bson.M{"$regex": "^" + name, "$options": "i"},
		"user_id":  bson.M{"$nin": notIn},
	}
	cur, err := r.users().Find(ctx, filter, options.Find().SetLimit(20))
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

// Page lists users newest first for the admin browse surface, returning the
// slice and the overall total.
func (r *Repo) Page(ctx context.Context, page, limit int64) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	total, err := r.users().CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	cur, err := r.users().Find(ctx, bson.M{}, options.Find().
		SetSort(bson.M{"create_time": -1}).
		SetSkip((page-1)*limit).
		SetLimit(limit),
	)
	if err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, total, nil
}

// Nickname resolves a display name; used for realtime sender snapshots.
func (r *Repo) Nickname(ctx context.Context, userID string) (string, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.Name != "" {
		return u.Name, nil
	}
	return u.Username, nil
}

// AddFriend links both users; $addToSet keeps the lists duplicate-free.
func (r *Repo) AddFriend(ctx context.Context, a, b string) error {
	_, err := r.users().UpdateOne(ctx, bson.M{"user_id": a}, bson.M{"$addToSet": bson.M{"friends": b}})
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	_, err = r.users().UpdateOne(ctx, bson.M{"user_id": b}, bson.M{"$addToSet": bson.M{"friends": a}})
	if err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

// ---- friend requests ----

func (r *Repo) InsertRequest(ctx context.Context, req *model.FriendRequest) error {
	if _, err := r.requests().InsertOne(ctx, req); err != nil {
		return errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return nil
}

func (r *Repo) FindRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	var req model.FriendRequest
	err := r.requests().FindOne(ctx, bson.M{"request_id": requestID}).Decode(&req)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.ErrNotFound.WithDetail("friend request not found")
	}
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &req, nil
}

// PendingBetween reports whether an unhandled request exists in either
// direction.
func (r *Repo) PendingBetween(ctx context.Context, a, b string) (bool, error) {
	n, err := r.requests().CountDocuments(ctx, bson.M{
		"handle_result": model.RequestPending,
		"$or": bson.A{
			bson.M{"from_user_id": a, "to_user_id": b},
			bson.M{"from_user_id": b, "to_user_id": a},
		},
	})
	if err != nil {
		return false, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return n > 0, nil
}

func (r *Repo) PendingFor(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	cur, err := r.requests().Find(ctx,
		bson.M{"to_user_id": userID, "handle_result": model.RequestPending},
		options.Find().SetSort(bson.M{"create_time": -1}),
	)
	if err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	var out []model.FriendRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return out, nil
}

// HandleRequest settles a pending request exactly once.
func (r *Repo) HandleRequest(ctx context.Context, requestID string, result int32) (*model.FriendRequest, error) {
	after := options.After
	res := r.requests().FindOneAndUpdate(ctx,
		bson.M{"request_id": requestID, "handle_result": model.RequestPending},
		bson.M{"$set": bson.M{"handle_result": result, "handle_time": time.Now().UTC()}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	)
	var req model.FriendRequest
	if err := res.Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrNotFound.WithDetail("friend request not found or already handled")
		}
		return nil, errs.ErrDownstreamUnavailable.Wrap(err)
	}
	return &req, nil
}
