package content

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ctaBody = `Intro paragraph.

<AmazonButton productName="Jackery Explorer 300" variant="primary" />

If you need more capacity, the <ProductLink productName="Goal Zero Yeti 400">Yeti 400</ProductLink> is worth a look.
<AmazonButton productName='EcoFlow River 2' asin="B0BSJBYN1S" size="lg" />
<AmazonButton variant="outline" />
`

func TestScanProductMentions(t *testing.T) {
	got := ScanProductMentions(Post{Slug: "power-guide", Body: ctaBody})
	want := []Mention{
		{Slug: "power-guide", Component: "AmazonButton", ProductName: "Jackery Explorer 300", Line: 3},
		{Slug: "power-guide", Component: "ProductLink", ProductName: "Goal Zero Yeti 400", Line: 5},
		{Slug: "power-guide", Component: "AmazonButton", ProductName: "EcoFlow River 2", ASIN: "B0BSJBYN1S", Line: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mentions mismatch (-want +got):\n%s", diff)
	}
}

func TestRewriteComponents(t *testing.T) {
	out := RewriteComponents(ctaBody, "power-guide")

	if strings.Contains(out, "<ProductLink") || strings.Contains(out, `productName="Jackery`) {
		t.Errorf("expected components to be rewritten:\n%s", out)
	}
	if !strings.Contains(out, "[Check Jackery Explorer 300 price on Amazon](/go/Jackery%20Explorer%20300?source=power-guide)") {
		t.Errorf("expected AmazonButton link, got:\n%s", out)
	}
	if !strings.Contains(out, "the [Yeti 400](/go/Goal%20Zero%20Yeti%20400?source=power-guide) is worth") {
		t.Errorf("expected ProductLink inner text kept, got:\n%s", out)
	}
	// components without a product name are left alone
	if !strings.Contains(out, `<AmazonButton variant="outline" />`) {
		t.Errorf("expected nameless component untouched, got:\n%s", out)
	}
}

func TestGoPath(t *testing.T) {
	if got := GoPath("Roomba i7+", ""); got != "/go/Roomba%20i7+" {
		t.Errorf("unexpected path %q", got)
	}
	if got := GoPath("DJI Mini 2", "drones"); got != "/go/DJI%20Mini%202?source=drones" {
		t.Errorf("unexpected path %q", got)
	}
}
