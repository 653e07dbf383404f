package page

import (
	"strconv"

	"feedreader/models"

	log "github.com/sirupsen/logrus"
)

// FeedLoader starts loading a feed and calls onComplete when it is done
type FeedLoader interface {
	LoadFeed(index int, onComplete func())
}

// Bind attaches the feed reader behaviour to p:
//
//   - clicking the menu icon toggles the menu-hidden class on the body
//   - the feed list shows one link per feed, re-rendered after every Reset
//   - clicking a feed link hides the menu and loads that feed
func Bind(p *Page, feeds []models.Feed, loader FeedLoader) {
	p.On(MenuIconSelector, func(p *Page, _ Event) {
		p.ToggleClass(BodySelector, MenuHiddenClass)
	})

	p.On(FeedLinkSelector, func(p *Page, e Event) {
		index, err := strconv.Atoi(e.Data("id"))
		if err != nil {
			log.WithFields(log.Fields{
				"text":  e.Text,
				"error": err,
			}).Warn("Feed link without a valid id")
			return
		}

		p.AddClass(BodySelector, MenuHiddenClass)
		if loader != nil {
			loader.LoadFeed(index, nil)
		}
	})

	p.RenderFeedList(feeds)
	p.OnReset(func(p *Page) {
		p.RenderFeedList(feeds)
	})
}
