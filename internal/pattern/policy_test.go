package pattern

import "testing"

func recordsWithTypes(types ...TitleType) []PublishRecord {
	records := make([]PublishRecord, len(types))
	for i, t := range types {
		records[i] = PublishRecord{Title: "t", TitleType: t}
	}
	return records
}

func TestSelectAllowedTypes(t *testing.T) {
	t.Run("empty history allows everything", func(t *testing.T) {
		policy := SelectAllowedTypes(nil, DefaultNumericCap)

		if policy.Total != 0 {
			t.Errorf("Total = %d, want 0", policy.Total)
		}
		if policy.NumericRatio != 0 {
			t.Errorf("NumericRatio = %v, want 0", policy.NumericRatio)
		}
		if len(policy.Allowed) != 4 {
			t.Errorf("len(Allowed) = %d, want 4", len(policy.Allowed))
		}
		if !policy.Allows(TitleNumeric) {
			t.Error("numeric should be allowed on an empty history")
		}
	})

	t.Run("numeric share at cap excludes numeric", func(t *testing.T) {
		records := recordsWithTypes(TitleNumeric, TitleNumeric, TitleQuestion, TitleContrast, TitleStatement)
		policy := SelectAllowedTypes(records, DefaultNumericCap)

		if policy.NumericRatio != 0.4 {
			t.Errorf("NumericRatio = %v, want 0.4", policy.NumericRatio)
		}
		if policy.Allows(TitleNumeric) {
			t.Error("numeric should be excluded at the cap")
		}
		for _, typ := range []TitleType{TitleQuestion, TitleContrast, TitleStatement} {
			if !policy.Allows(typ) {
				t.Errorf("%s should remain allowed", typ)
			}
		}
	})

	t.Run("numeric share below cap allows numeric", func(t *testing.T) {
		records := recordsWithTypes(TitleNumeric, TitleQuestion, TitleContrast, TitleStatement, TitleStatement)
		policy := SelectAllowedTypes(records, DefaultNumericCap)

		if policy.NumericRatio != 0.2 {
			t.Errorf("NumericRatio = %v, want 0.2", policy.NumericRatio)
		}
		if !policy.Allows(TitleNumeric) {
			t.Error("numeric should be allowed below the cap")
		}
	})

	t.Run("classifies records without a precomputed type", func(t *testing.T) {
		records := []PublishRecord{
			{Title: "5가지 업무 자동화 팁"},
			{Title: "5단계로 끝내는 정리법"},
			{Title: "도구 고르는 기준"},
		}
		policy := SelectAllowedTypes(records, DefaultNumericCap)

		if policy.Counts[TitleNumeric] != 2 {
			t.Errorf("Counts[numeric] = %d, want 2", policy.Counts[TitleNumeric])
		}
		if policy.Allows(TitleNumeric) {
			t.Error("numeric should be excluded with a 2/3 share")
		}
	})
}

func TestCheckTitle(t *testing.T) {
	restricted := SelectAllowedTypes(
		recordsWithTypes(TitleNumeric, TitleNumeric, TitleStatement),
		DefaultNumericCap,
	)

	t.Run("violating title is rejected with its type", func(t *testing.T) {
		ok, typ := CheckTitle("7가지 꿀팁 정리", restricted)
		if ok {
			t.Error("numeric title should be rejected under a restricted policy")
		}
		if typ != TitleNumeric {
			t.Errorf("type = %q, want %q", typ, TitleNumeric)
		}
	})

	t.Run("compliant title passes", func(t *testing.T) {
		ok, typ := CheckTitle("요금제를 바꿔야 할까?", restricted)
		if !ok {
			t.Error("question title should pass under a restricted policy")
		}
		if typ != TitleQuestion {
			t.Errorf("type = %q, want %q", typ, TitleQuestion)
		}
	})
}
