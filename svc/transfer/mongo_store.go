package transfer

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CollectionName is the collection used by MongoStore.
const CollectionName = "transfers"

// MongoStore keeps transfers in a collection keyed by token (_id).
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the expiry index used by the sweeper.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetName("expires_at_idx"),
	})
	if err != nil {
		return storageErr(err)
	}
	return nil
}

type mongoTransfer struct {
	Token          string     `bson:"_id"`
	RecipientEmail string     `bson:"recipient_email"`
	OTPHash        string     `bson:"otp_hash"`
	OTPSalt        string     `bson:"otp_salt"`
	KeyID          string     `bson:"key_id"`
	Filename       string     `bson:"filename"`
	BlobRef        string     `bson:"blob_ref"`
	Nonce          []byte     `bson:"nonce"`
	ContentHash    string     `bson:"content_hash"`
	Size           int64      `bson:"size"`
	CreatedAt      time.Time  `bson:"created_at"`
	ExpiresAt      time.Time  `bson:"expires_at"`
	Used           bool       `bson:"used"`
	Attempts       int        `bson:"attempts"`
	LockedUntil    *time.Time `bson:"locked_until,omitempty"`
	DownloadedFrom string     `bson:"downloaded_from"`
	DownloadedAt   *time.Time `bson:"downloaded_at,omitempty"`
}

func toMongo(t *Transfer) mongoTransfer {
	return mongoTransfer(*t)
}

func (d mongoTransfer) transfer() *Transfer {
	t := Transfer(d)
	t.CreatedAt = t.CreatedAt.UTC()
	t.ExpiresAt = t.ExpiresAt.UTC()
	if t.LockedUntil != nil {
		v := t.LockedUntil.UTC()
		t.LockedUntil = &v
	}
	if t.DownloadedAt != nil {
		v := t.DownloadedAt.UTC()
		t.DownloadedAt = &v
	}
	return &t
}

func (s *MongoStore) Create(ctx context.Context, t *Transfer) error {
	if _, err := s.coll.InsertOne(ctx, toMongo(t)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateToken
		}
		return storageErr(err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, token string) (*Transfer, error) {
	return s.decodeOne(s.coll.FindOne(ctx, bson.M{"_id": token}))
}

// ReserveAttempt runs a two-stage update pipeline so the lock decision
// sees the incremented counter within the same atomic write.
func (s *MongoStore) ReserveAttempt(ctx context.Context, token string, maxAttempts int, now, lockUntil time.Time) (*Transfer, error) {
	filter := bson.M{
		"_id":        token,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
		"$or": bson.A{
			bson.M{"locked_until": nil},
			bson.M{"locked_until": bson.M{"$lte": now}},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempts": bson.M{"$add": bson.A{"$attempts", 1}},
		}}},
		{{Key: "$set", Value: bson.M{
			"locked_until": bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$attempts", maxAttempts}},
				lockUntil,
				"$locked_until",
			}},
		}}},
	}
	res := s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	t, err := s.decodeOne(res)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAttemptRefused
	}
	return t, err
}

func (s *MongoStore) ReleaseAttempt(ctx context.Context, token string) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"attempts": bson.M{"$max": bson.A{bson.M{"$subtract": bson.A{"$attempts", 1}}, 0}},
		}}},
		{{Key: "$unset", Value: "locked_until"}},
	}
	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": token, "used": false}, update); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *MongoStore) MarkUsed(ctx context.Context, token, origin string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": token, "used": false},
		bson.M{"$set": bson.M{"used": true, "downloaded_from": origin, "downloaded_at": at}},
	)
	if err != nil {
		return storageErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyConsumed
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, token string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return storageErr(err)
	}
	return nil
}

func (s *MongoStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Transfer, error) {
	cur, err := s.coll.Find(ctx,
		bson.M{"expires_at": bson.M{"$lte": now}},
		options.Find().SetSort(bson.D{{Key: "expires_at", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, storageErr(err)
	}

	var docs []mongoTransfer
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err)
	}

	out := make([]*Transfer, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.transfer())
	}
	return out, nil
}

func (s *MongoStore) decodeOne(res *mongo.SingleResult) (*Transfer, error) {
	var d mongoTransfer
	if err := res.Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, storageErr(err)
	}
	return d.transfer(), nil
}
