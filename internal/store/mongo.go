// MongoDB implementations of the entity backends. Collection handles are
// resolved lazily through the connection supervisor so that backends built
// at startup keep working across disconnect/reconnect cycles.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lkataba/community-backend/internal/domain"
)

// Collection names in the survey database.
const (
	surveyCollection = "surveyresponses"
	postsCollection  = "posts"
)

// surveyDoc is the wire shape of a survey response in MongoDB. Answers are
// stored as a plain document so both single answers and multi-select sets
// keep their natural bson encoding.
type surveyDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Language    string        `bson:"language"`
	Answers     bson.M        `bson:"answers"`
	SubmittedAt time.Time     `bson:"submittedAt"`
}

func toSurveyDoc(r *domain.SurveyResponse) surveyDoc {
	answers := bson.M{}
	for k, v := range r.Answers {
		if v.IsSet() {
			answers[k] = v.Many
		} else {
			answers[k] = v.One
		}
	}
	return surveyDoc{Language: r.Language, Answers: answers, SubmittedAt: r.SubmittedAt}
}

func fromSurveyDoc(d surveyDoc) domain.SurveyResponse {
	answers := make(map[string]domain.AnswerValue, len(d.Answers))
	for k, v := range d.Answers {
		switch t := v.(type) {
		case string:
			answers[k] = domain.AnswerValue{One: t}
		case bson.A:
			set := make([]string, 0, len(t))
			for _, e := range t {
				if s, ok := e.(string); ok {
					set = append(set, s)
				}
			}
			answers[k] = domain.AnswerValue{Many: set}
		case []string:
			answers[k] = domain.AnswerValue{Many: t}
		}
	}
	return domain.SurveyResponse{
		ID:          d.ID.Hex(),
		Language:    d.Language,
		Answers:     answers,
		SubmittedAt: d.SubmittedAt,
	}
}

// postDoc is the wire shape of a board post in MongoDB.
type postDoc struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Title     string        `bson:"title"`
	Category  string        `bson:"category"`
	Excerpt   string        `bson:"excerpt"`
	Content   string        `bson:"content"`
	Author    string        `bson:"author"`
	Status    string        `bson:"status"`
	Approved  bool          `bson:"approved"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func fromPostDoc(d postDoc) domain.Post {
	return domain.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Category:  d.Category,
		Excerpt:   d.Excerpt,
		Content:   d.Content,
		Author:    d.Author,
		Status:    d.Status,
		Date:      d.CreatedAt.Format("2006-01-02"),
		Approved:  d.Approved,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// MongoSurveys is the document-database implementation of SurveyBackend.
type MongoSurveys struct {
	sup *Supervisor
}

// NewMongoSurveys binds the survey backend to the supervisor's connection.
func NewMongoSurveys(sup *Supervisor) *MongoSurveys { return &MongoSurveys{sup: sup} }

func (s *MongoSurveys) coll() (*mongo.Collection, error) {
	return s.sup.Collection(surveyCollection)
}

// Insert stores the response and returns the generated document id.
func (s *MongoSurveys) Insert(ctx context.Context, r *domain.SurveyResponse) (string, error) {
	coll, err := s.coll()
	if err != nil {
		return "", err
	}
	res, err := coll.InsertOne(ctx, toSurveyDoc(r))
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		r.ID = oid.Hex()
	}
	return r.ID, nil
}

// All returns every stored response, newest first.
func (s *MongoSurveys) All(ctx context.Context) ([]domain.SurveyResponse, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []surveyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.SurveyResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromSurveyDoc(d))
	}
	return out, nil
}

// Count returns the total number of stored responses.
func (s *MongoSurveys) Count(ctx context.Context) (int, error) {
	coll, err := s.coll()
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{})
	return int(n), err
}

// CountSince returns the number of responses submitted at or after t.
func (s *MongoSurveys) CountSince(ctx context.Context, t time.Time) (int, error) {
	coll, err := s.coll()
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, bson.M{"submittedAt": bson.M{"$gte": t}})
	return int(n), err
}

// Clear removes all responses and returns how many were deleted.
func (s *MongoSurveys) Clear(ctx context.Context) (int, error) {
	coll, err := s.coll()
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	return int(res.DeletedCount), nil
}

// MongoPosts is the document-database implementation of PostBackend.
type MongoPosts struct {
	sup *Supervisor
}

// NewMongoPosts binds the posts backend to the supervisor's connection.
func NewMongoPosts(sup *Supervisor) *MongoPosts { return &MongoPosts{sup: sup} }

func (s *MongoPosts) coll() (*mongo.Collection, error) {
	return s.sup.Collection(postsCollection)
}

// Insert stores the post and returns it with the generated id.
func (s *MongoPosts) Insert(ctx context.Context, p *domain.Post) (*domain.Post, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	doc := postDoc{
		Title:     p.Title,
		Category:  p.Category,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Author:    p.Author,
		Status:    p.Status,
		Approved:  p.Approved,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	res, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		p.ID = oid.Hex()
	}
	p.Date = p.CreatedAt.Format("2006-01-02")
	return p, nil
}

// All returns every post, newest first.
func (s *MongoPosts) All(ctx context.Context) ([]domain.Post, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	cur, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Post, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromPostDoc(d))
	}
	return out, nil
}

// Get returns the post with the given id, or ErrNotFound.
func (s *MongoPosts) Get(ctx context.Context, id string) (*domain.Post, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc postDoc
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := fromPostDoc(doc)
	return &p, nil
}

// Update applies a moderation transition and returns the updated post.
func (s *MongoPosts) Update(ctx context.Context, id, status string, approved bool) (*domain.Post, error) {
	coll, err := s.coll()
	if err != nil {
		return nil, err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"approved":  approved,
		"updatedAt": time.Now().UTC(),
	}}
	var doc postDoc
	err = coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p := fromPostDoc(doc)
	return &p, nil
}

// Delete removes the post with the given id. It reports whether a post was
// actually removed.
func (s *MongoPosts) Delete(ctx context.Context, id string) (bool, error) {
	coll, err := s.coll()
	if err != nil {
		return false, err
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}
