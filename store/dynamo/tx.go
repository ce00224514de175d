package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"string_server/models"
	"string_server/store"
	"string_server/utils"
)

const (
	attrPK      = "pk"
	attrSK      = "sk"
	attrEntity  = "entity"
	attrVersion = "version"
	attrRef     = "ref"

	entityUser  = "user"
	entityMatch = "match"

	skProfile = "PROFILE"
	skMatch   = "MATCH"
	skGuard   = "GUARD"

	// TransactWriteItems limit.
	maxTransactItems = 100

	sortTime = "2006-01-02T15:04:05.000000000Z07:00"
)

func userPK(id string) string { return "USER#" + id }
func matchPK(id string) string { return "MATCH#" + id }
func usernamePK(n string) string { return "USERNAME#" + n }
func pairPK(a, b string) string { return "PAIR#" + store.PairKey(a, b) }
func ratingPK(key string) string { return "RATING#" + key }
func tuggedSK(to string) string { return "TUGGED#" + to }
func matchRefSK(id string) string { return "MATCHREF#" + id }
func stamp(t time.Time) string { return t.UTC().Format(sortTime) }
func tugSK(tg *models.Tug) string { return "TUG#" + stamp(tg.CreatedAt) + "#" + tg.ID }
func msgSK(m *models.Message) string {
	return fmt.Sprintf("MSG#%010d#%s", m.Seq, m.ID)
}

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrPK: utils.StringAttr(pk), attrSK: utils.StringAttr(sk)}
}

func marshalItem(v interface{}, pk, sk, entity string) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item: %w", err)
	}
	item[attrPK] = utils.StringAttr(pk)
	item[attrSK] = utils.StringAttr(sk)
	if entity != "" {
		item[attrEntity] = utils.StringAttr(entity)
	}
	return item, nil
}

type writeOp struct {
	item   types.TransactWriteItem
	onFail error
}

type tx struct {
	ctx      context.Context
	s        *Store
	readOnly bool

	userReads  map[string]int64
	matchReads map[string]int64
	pairReads  map[string]string
	tugReads   map[string]bool

	userBase  map[string]int64
	users     map[string]*models.User
	matchBase map[string]int64
	matches   map[string]*models.Match
	tugs      []*models.Tug
	messages  []*models.Message
	ratings   []*models.Rating
	scans     []*models.RadarScan
}

func newTx(ctx context.Context, s *Store, readOnly bool) *tx {
	return &tx{
		ctx:        ctx,
		s:          s,
		readOnly:   readOnly,
		userReads:  map[string]int64{},
		matchReads: map[string]int64{},
		pairReads:  map[string]string{},
		tugReads:   map[string]bool{},
		userBase:   map[string]int64{},
		users:      map[string]*models.User{},
		matchBase:  map[string]int64{},
		matches:    map[string]*models.Match{},
	}
}

func (t *tx) getItem(pk, sk string) (map[string]types.AttributeValue, error) {
	out, err := t.s.client.GetItem(t.ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.s.table),
		Key:            key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item from table '%s': %w", t.s.table, err)
	}
	return out.Item, nil
}

// query returns every item under pk whose sort key starts with prefix, in sort key order.
func (t *tx) query(pk, prefix string) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewQueryPaginator(t.s.client, &dynamodb.QueryInput{
		TableName:              aws.String(t.s.table),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :prefix)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
			"#sk": attrSK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     utils.StringAttr(pk),
			":prefix": utils.StringAttr(prefix),
		},
		ConsistentRead: aws.Bool(true),
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(t.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query table '%s': %w", t.s.table, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// scanEntity returns every item of one entity type.
func (t *tx) scanEntity(entity string) ([]map[string]types.AttributeValue, error) {
	p := dynamodb.NewScanPaginator(t.s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(t.s.table),
		FilterExpression:          aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": attrEntity},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": utils.StringAttr(entity)},
		ConsistentRead:            aws.Bool(true),
	})
	var items []map[string]types.AttributeValue
	for p.HasMorePages() {
		page, err := p.NextPage(t.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table '%s': %w", t.s.table, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (t *tx) GetUser(id string) (*models.User, error) {
	if u, ok := t.users[id]; ok {
		c := *u
		return &c, nil
	}
	item, err := t.getItem(userPK(id), skProfile)
	if err != nil {
		return nil, err
	}
	if _, seen := t.userReads[id]; !seen {
		t.userReads[id] = utils.ExtractInt64(item, attrVersion)
	}
	if item == nil {
		return nil, store.ErrNotFound
	}
	var u models.User
	if err := attributevalue.UnmarshalMap(item, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

func (t *tx) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range t.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	item, err := t.getItem(usernamePK(username), skGuard)
	if err != nil {
		return nil, err
	}
	id := utils.ExtractString(item, attrRef)
	if id == "" {
		return nil, store.ErrNotFound
	}
	return t.GetUser(id)
}

func (t *tx) ListUsers() ([]*models.User, error) {
	items, err := t.scanEntity(entityUser)
	if err != nil {
		return nil, err
	}
	var committed []*models.User
	if err := attributevalue.UnmarshalListOfMaps(items, &committed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal users: %w", err)
	}
	out := make([]*models.User, 0, len(committed)+len(t.users))
	for _, u := range committed {
		if _, staged := t.users[u.ID]; !staged {
			out = append(out, u)
		}
	}
	for _, u := range t.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (t *tx) PutUser(u *models.User) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if staged, ok := t.users[u.ID]; ok {
		if u.Version != staged.Version {
			return store.ErrConflict
		}
		c := *u
		t.users[u.ID] = &c
		return nil
	}
	t.userBase[u.ID] = u.Version
	u.Version++
	c := *u
	t.users[u.ID] = &c
	return nil
}

func (t *tx) AddTug(tg *models.Tug) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *tg
	t.tugs = append(t.tugs, &c)
	return nil
}

func (t *tx) ListTugsFrom(userID string) ([]*models.Tug, error) {
	items, err := t.query(userPK(userID), "TUG#")
	if err != nil {
		return nil, err
	}
	var out []*models.Tug
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tugs: %w", err)
	}
	for _, tg := range t.tugs {
		if tg.FromUserID == userID {
			c := *tg
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) HasTug(fromUserID, toUserID string) (bool, error) {
	for _, tg := range t.tugs {
		if tg.FromUserID == fromUserID && tg.ToUserID == toUserID {
			return true, nil
		}
	}
	item, err := t.getItem(userPK(fromUserID), tuggedSK(toUserID))
	if err != nil {
		return false, err
	}
	seen := item != nil
	k := store.TugKey(fromUserID, toUserID)
	if _, ok := t.tugReads[k]; !ok {
		t.tugReads[k] = seen
	}
	return seen, nil
}

func (t *tx) loadMatch(id string) (*models.Match, error) {
	item, err := t.getItem(matchPK(id), skMatch)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	var m models.Match
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &m, nil
}

func (t *tx) GetMatch(id string) (*models.Match, error) {
	if m, ok := t.matches[id]; ok {
		return m.Clone(), nil
	}
	m, err := t.loadMatch(id)
	if err != nil {
		return nil, err
	}
	if _, seen := t.matchReads[id]; !seen {
		var v int64
		if m != nil {
			v = m.Version
		}
		t.matchReads[id] = v
	}
	if m == nil {
		return nil, store.ErrNotFound
	}
	return m, nil
}

func (t *tx) GetMatchByPair(userA, userB string) (*models.Match, error) {
	pk := store.PairKey(userA, userB)
	for _, m := range t.matches {
		if store.PairKey(m.User1ID, m.User2ID) == pk {
			return m.Clone(), nil
		}
	}
	item, err := t.getItem(pairPK(userA, userB), skGuard)
	if err != nil {
		return nil, err
	}
	id := utils.ExtractString(item, attrRef)
	if _, seen := t.pairReads[pk]; !seen {
		t.pairReads[pk] = id
	}
	if id == "" {
		return nil, store.ErrNotFound
	}
	return t.GetMatch(id)
}

func (t *tx) ListMatches() ([]*models.Match, error) {
	items, err := t.scanEntity(entityMatch)
	if err != nil {
		return nil, err
	}
	var committed []*models.Match
	if err := attributevalue.UnmarshalListOfMaps(items, &committed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal matches: %w", err)
	}
	return t.overlayMatches(committed, func(*models.Match) bool { return true }), nil
}

func (t *tx) ListMatchesForUser(userID string) ([]*models.Match, error) {
	refs, err := t.query(userPK(userID), "MATCHREF#")
	if err != nil {
		return nil, err
	}
	var committed []*models.Match
	for _, ref := range refs {
		m, err := t.loadMatch(utils.ExtractString(ref, attrRef))
		if err != nil {
			return nil, err
		}
		if m != nil {
			committed = append(committed, m)
		}
	}
	return t.overlayMatches(committed, func(m *models.Match) bool { return m.HasUser(userID) }), nil
}

func (t *tx) overlayMatches(committed []*models.Match, keep func(*models.Match) bool) []*models.Match {
	var out []*models.Match
	for _, m := range committed {
		if _, staged := t.matches[m.ID]; !staged && keep(m) {
			out = append(out, m)
		}
	}
	for _, m := range t.matches {
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchedAt.Equal(out[j].MatchedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].MatchedAt.Before(out[j].MatchedAt)
	})
	return out
}

func (t *tx) PutMatch(m *models.Match) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	if staged, ok := t.matches[m.ID]; ok {
		if m.Version != staged.Version {
			return store.ErrConflict
		}
		t.matches[m.ID] = m.Clone()
		return nil
	}
	t.matchBase[m.ID] = m.Version
	m.Version++
	t.matches[m.ID] = m.Clone()
	return nil
}

func (t *tx) AddMessage(m *models.Message) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *m
	t.messages = append(t.messages, &c)
	return nil
}

func (t *tx) ListMessages(matchID string) ([]*models.Message, error) {
	items, err := t.query(matchPK(matchID), "MSG#")
	if err != nil {
		return nil, err
	}
	var out []*models.Message
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	for _, m := range t.messages {
		if m.MatchID == matchID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) AddRating(r *models.Rating) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	for _, staged := range t.ratings {
		if staged.Key() == r.Key() {
			return store.ErrDuplicate
		}
	}
	c := *r
	t.ratings = append(t.ratings, &c)
	return nil
}

func (t *tx) ListRatingsForUser(userID string) ([]*models.Rating, error) {
	items, err := t.query(userPK(userID), "RATING#")
	if err != nil {
		return nil, err
	}
	var out []*models.Rating
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ratings: %w", err)
	}
	for _, r := range t.ratings {
		if r.RaterUserID == userID || r.RatedUserID == userID {
			c := *r
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *tx) AddRadarScan(sc *models.RadarScan) error {
	if t.readOnly {
		return store.ErrReadOnly
	}
	c := *sc
	t.scans = append(t.scans, &c)
	return nil
}

func (t *tx) ListRadarScans(userID string) ([]*models.RadarScan, error) {
	items, err := t.query(userPK(userID), "SCAN#")
	if err != nil {
		return nil, err
	}
	var out []*models.RadarScan
	if err := attributevalue.UnmarshalListOfMaps(items, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal radar scans: %w", err)
	}
	for _, sc := range t.scans {
		if sc.UserID == userID {
			c := *sc
			out = append(out, &c)
		}
	}
	return out, nil
}

// batch collects the TransactWriteItems of one commit.
type batch struct {
	table   string
	ops     []writeOp
	written map[string]bool
}

func (b *batch) has(pk, sk string) bool { return b.written[pk+"|"+sk] }

func (b *batch) put(item map[string]types.AttributeValue, cond string, values map[string]types.AttributeValue, onFail error) {
	pk := utils.ExtractString(item, attrPK)
	sk := utils.ExtractString(item, attrSK)
	b.written[pk+"|"+sk] = true
	p := &types.Put{TableName: aws.String(b.table), Item: item}
	if cond != "" {
		p.ConditionExpression = aws.String(cond)
		p.ExpressionAttributeNames = conditionNames(cond)
		p.ExpressionAttributeValues = values
	}
	b.ops = append(b.ops, writeOp{item: types.TransactWriteItem{Put: p}, onFail: onFail})
}

func (b *batch) check(pk, sk, cond string, values map[string]types.AttributeValue) {
	if b.has(pk, sk) {
		return
	}
	b.written[pk+"|"+sk] = true
	b.ops = append(b.ops, writeOp{
		item: types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:                 aws.String(b.table),
			Key:                       key(pk, sk),
			ConditionExpression:       aws.String(cond),
			ExpressionAttributeNames:  conditionNames(cond),
			ExpressionAttributeValues: values,
		}},
		onFail: store.ErrConflict,
	})
}

const (
	condAbsent  = "attribute_not_exists(#pk)"
	condVersion = "#v = :v"
)

func conditionNames(cond string) map[string]string {
	if cond == condAbsent {
		return map[string]string{"#pk": attrPK}
	}
	return map[string]string{"#v": attrVersion}
}

func versionValues(v int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{":v": utils.NumberAttr(v)}
}

func refItem(pk, sk, ref string) map[string]types.AttributeValue {
	item := key(pk, sk)
	item[attrRef] = utils.StringAttr(ref)
	return item
}

func (t *tx) hasWrites() bool {
	return len(t.users)+len(t.matches)+len(t.tugs)+len(t.messages)+len(t.ratings)+len(t.scans) > 0
}

func (t *tx) commit() error {
	if !t.hasWrites() {
		return nil
	}
	b := &batch{table: t.s.table, written: map[string]bool{}}

	for id, u := range t.users {
		item, err := marshalItem(u, userPK(id), skProfile, entityUser)
		if err != nil {
			return err
		}
		base := t.userBase[id]
		if base == 0 {
			b.put(item, condAbsent, nil, store.ErrDuplicate)
			b.put(refItem(usernamePK(u.Username), skGuard, id), condAbsent, nil, store.ErrDuplicate)
			continue
		}
		b.put(item, condVersion, versionValues(base), store.ErrConflict)
	}
	for id, m := range t.matches {
		item, err := marshalItem(m, matchPK(id), skMatch, entityMatch)
		if err != nil {
			return err
		}
		base := t.matchBase[id]
		if base == 0 {
			b.put(item, condAbsent, nil, store.ErrDuplicate)
			b.put(refItem(pairPK(m.User1ID, m.User2ID), skGuard, id), condAbsent, nil, store.ErrConflict)
			b.put(refItem(userPK(m.User1ID), matchRefSK(id), id), "", nil, nil)
			b.put(refItem(userPK(m.User2ID), matchRefSK(id), id), "", nil, nil)
			continue
		}
		b.put(item, condVersion, versionValues(base), store.ErrConflict)
	}
	for _, tg := range t.tugs {
		item, err := marshalItem(tg, userPK(tg.FromUserID), tugSK(tg), "")
		if err != nil {
			return err
		}
		b.put(item, "", nil, nil)
		if !b.has(userPK(tg.FromUserID), tuggedSK(tg.ToUserID)) {
			b.put(refItem(userPK(tg.FromUserID), tuggedSK(tg.ToUserID), tg.ToUserID), "", nil, nil)
		}
	}
	for _, msg := range t.messages {
		item, err := marshalItem(msg, matchPK(msg.MatchID), msgSK(msg), "")
		if err != nil {
			return err
		}
		b.put(item, "", nil, nil)
	}
	for _, r := range t.ratings {
		guard, err := marshalItem(r, ratingPK(r.Key()), skGuard, "")
		if err != nil {
			return err
		}
		b.put(guard, condAbsent, nil, store.ErrDuplicate)
		sk := "RATING#" + stamp(r.CreatedAt) + "#" + r.ID
		for _, owner := range []string{r.RaterUserID, r.RatedUserID} {
			item, err := marshalItem(r, userPK(owner), sk, "")
			if err != nil {
				return err
			}
			b.put(item, "", nil, nil)
		}
	}
	for _, sc := range t.scans {
		item, err := marshalItem(sc, userPK(sc.UserID), "SCAN#"+stamp(sc.ScannedAt)+"#"+sc.ID, "")
		if err != nil {
			return err
		}
		b.put(item, "", nil, nil)
	}

	// Read set: everything observed must still be as observed.
	for id, v := range t.userReads {
		if v == 0 {
			b.check(userPK(id), skProfile, condAbsent, nil)
		} else {
			b.check(userPK(id), skProfile, condVersion, versionValues(v))
		}
	}
	for id, v := range t.matchReads {
		if v == 0 {
			b.check(matchPK(id), skMatch, condAbsent, nil)
		} else {
			b.check(matchPK(id), skMatch, condVersion, versionValues(v))
		}
	}
	for pk, id := range t.pairReads {
		if id == "" {
			b.check("PAIR#"+pk, skGuard, condAbsent, nil)
		}
	}
	for k, seen := range t.tugReads {
		if !seen {
			from, to := splitTugKey(k)
			b.check(userPK(from), tuggedSK(to), condAbsent, nil)
		}
	}

	if len(b.ops) > maxTransactItems {
		return fmt.Errorf("transaction touches %d items, limit is %d", len(b.ops), maxTransactItems)
	}
	items := make([]types.TransactWriteItem, len(b.ops))
	for i, op := range b.ops {
		items[i] = op.item
	}
	_, err := t.s.client.TransactWriteItems(t.ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" && i < len(b.ops) && b.ops[i].onFail != nil {
				return b.ops[i].onFail
			}
		}
		return store.ErrConflict
	}
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return store.ErrConflict
	}
	return fmt.Errorf("failed to commit transaction: %w", err)
}

func splitTugKey(k string) (string, string) {
	from, to, _ := strings.Cut(k, ">")
	return from, to
}
